package channel

import (
	"context"
	"fmt"

	"github.com/arifsetiawan/gambot/internal/router"
)

// Channel is a messaging-platform adapter. It translates platform
// updates into router events and sends replies back.
type Channel interface {
	Start(ctx context.Context) error
}

type Config struct {
	Provider string
	Token    string
}

func New(cfg Config, r *router.Router) (Channel, error) {
	switch cfg.Provider {
	case "telegram":
		return newTelegram(cfg.Token, r)
	case "discord":
		return newDiscord(cfg.Token, r)
	default:
		return nil, fmt.Errorf("unknown channel provider: %s", cfg.Provider)
	}
}

const welcomeText = "Hi! I'm gambot.\n\n" +
	"Chat with me directly, or use /generate <description> to create an image.\n" +
	"Send me two photos and say \"combine images\" to merge them into one."

const generateUsage = "Please describe the image after the command.\n" +
	"Example: /generate a dragon drinking coffee"
