package genai

import (
	"context"
	"time"
)

// Result is what a generation collaborator produced. Either field may be
// empty: a text reply has no media, and an image provider is allowed to
// decline and answer with text only.
type Result struct {
	Text       string
	MediaBytes []byte
	ProducedAt time.Time
}

// TextGenerator produces a plain text reply for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (Result, error)
}

// ImageGenerator produces an image for a prompt, optionally conditioned
// on reference images. Empty MediaBytes with non-empty Text is a valid
// declined outcome, not an error.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, refs [][]byte) (Result, error)
}

type Config struct {
	APIKey string
	Model  string
}
