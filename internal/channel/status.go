package channel

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/arifsetiawan/gambot/internal/router"
)

// buildStatus renders the /status reply shared by all channels.
func buildStatus(r *router.Router) string {
	stats := r.Stats()

	var sb strings.Builder
	sb.WriteString("gambot status\n")
	sb.WriteString(fmt.Sprintf("  active users: %d\n", stats.Users))
	sb.WriteString(fmt.Sprintf("  cached results: %d\n", stats.CacheEntries))
	sb.WriteString(fmt.Sprintf("  goroutines: %d\n", runtime.NumGoroutine()))

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			sb.WriteString(fmt.Sprintf("  memory: %.1f MB\n", float64(mi.RSS)/(1024*1024)))
		}
		if created, err := p.CreateTime(); err == nil {
			uptime := time.Since(time.UnixMilli(created)).Round(time.Second)
			sb.WriteString(fmt.Sprintf("  uptime: %s\n", uptime))
		}
	}

	return sb.String()
}
