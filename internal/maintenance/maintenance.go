package maintenance

import (
	"github.com/robfig/cron/v3"

	"github.com/arifsetiawan/gambot/internal/cache"
	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/session"
)

const defaultMediaWarnThreshold = 50

// Sweeper runs periodic housekeeping: it evicts expired cache entries
// and flags users whose media buffer keeps growing without ever being
// combined. Buffers are never touched; growth is an accepted risk, the
// sweep only makes it visible.
type Sweeper struct {
	cron          *cron.Cron
	sessions      *session.Store
	cache         *cache.Cache
	warnThreshold int
}

func NewSweeper(sessions *session.Store, c *cache.Cache, warnThreshold int) *Sweeper {
	if warnThreshold <= 0 {
		warnThreshold = defaultMediaWarnThreshold
	}

	return &Sweeper{
		cron:          cron.New(),
		sessions:      sessions,
		cache:         c,
		warnThreshold: warnThreshold,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 10m", s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("maintenance sweeps scheduled", "interval", "10m")
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	if removed := s.cache.Sweep(); removed > 0 {
		logger.Info("cache entries evicted", "removed", removed, "remaining", s.cache.Len())
	}

	s.sessions.Range(func(userID string, sess *session.Session) {
		if n := sess.MediaCount(); n >= s.warnThreshold {
			logger.Warn("media buffer growing unbounded", "user", userID, "buffered", n)
		}
	})
}
