package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arifsetiawan/gambot/internal/cache"
	"github.com/arifsetiawan/gambot/internal/genai"
	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/session"
)

// ErrInsufficientMedia is returned when a combine request arrives before
// two media items are buffered. Nothing is mutated in that case.
var ErrInsufficientMedia = errors.New("need at least two buffered images to combine")

// combinePrompt is the fixed instruction sent along with the two
// reference images.
const combinePrompt = "Merge these two images into a single appealing composite. " +
	"Keep the subjects of both images clearly visible and well proportioned."

// State of the per-user workflow.
type State int

const (
	AwaitingMedia State = iota // fewer than two items buffered
	Ready                      // two or more items buffered
	Combining                  // a generation call is in progress
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Combining:
		return "combining"
	default:
		return "awaiting_media"
	}
}

// Workflow runs the two-image composition: it selects the two most
// recently buffered media items, resolves them to bytes, and issues one
// cache-deduplicated generation call. Selection is non-destructive, so a
// repeated combine against an unchanged buffer hits the cache.
type Workflow struct {
	gen   genai.ImageGenerator
	cache *cache.Cache
	fetch MediaFetcher

	mu        sync.Mutex
	combining map[string]bool
}

func NewWorkflow(gen genai.ImageGenerator, c *cache.Cache, fetch MediaFetcher) *Workflow {
	return &Workflow{gen: gen, cache: c, fetch: fetch, combining: make(map[string]bool)}
}

// State reports where the user's workflow currently stands.
func (w *Workflow) State(userID string, sess *session.Session) State {
	w.mu.Lock()
	busy := w.combining[userID]
	w.mu.Unlock()

	if busy {
		return Combining
	}
	if sess.MediaCount() >= 2 {
		return Ready
	}
	return AwaitingMedia
}

// Combine produces a composite of the two most recent buffered images.
// The guard fires before anything else: with fewer than two items it
// returns ErrInsufficientMedia and leaves all state untouched.
func (w *Workflow) Combine(ctx context.Context, userID string, sess *session.Session) (genai.Result, error) {
	refs, err := sess.LastMedia(2)
	if err != nil {
		if errors.Is(err, session.ErrNotEnoughMedia) {
			return genai.Result{}, ErrInsufficientMedia
		}
		return genai.Result{}, err
	}

	w.setCombining(userID, true)
	defer w.setCombining(userID, false)

	key := cache.Key("combine", refs[0].Locator, refs[1].Locator)
	logger.Debug("combine requested", "user", userID, "key", key)

	return w.cache.GetOrCompute(key, func() (genai.Result, error) {
		images := make([][]byte, len(refs))
		for i, ref := range refs {
			data, err := w.fetch.Fetch(ctx, ref.Locator)
			if err != nil {
				return genai.Result{}, fmt.Errorf("fetch media %q: %w", ref.Locator, err)
			}
			images[i] = data
		}

		return w.gen.GenerateImage(ctx, combinePrompt, images)
	})
}

func (w *Workflow) setCombining(userID string, v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if v {
		w.combining[userID] = true
	} else {
		delete(w.combining, userID)
	}
}
