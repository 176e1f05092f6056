package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arifsetiawan/gambot/internal/artifact"
	"github.com/arifsetiawan/gambot/internal/cache"
	"github.com/arifsetiawan/gambot/internal/compose"
	"github.com/arifsetiawan/gambot/internal/genai"
	"github.com/arifsetiawan/gambot/internal/intent"
	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/session"
	"github.com/arifsetiawan/gambot/internal/transcript"
)

const defaultTimeout = 60 * time.Second

// User-facing copy. Diagnostics never leak into these; they go to the log.
const (
	replyMediaAck        = "Image received! I now have %d stored for you."
	replyNeedMoreImages  = "Send me at least 2 images first, then ask me to combine them."
	replyFailure         = "Sorry, something went wrong on my end. Please try again."
	replyNoResponse      = "Sorry, I can't come up with a response right now."
	replyDeclined        = "Sorry, I couldn't create that image. Try a different description."
	replyCombineDeclined = "Sorry, I couldn't combine those images."
	replyCombineCaption  = "Here is the composite of your two images."

	imagePlaceholder = "[image]"
	combineSummary   = "Combined the two most recent images into a composite."
)

// Event is a normalized inbound message from a channel adapter.
type Event struct {
	UserID string
	Text   string
	Media  *Attachment
}

type Attachment struct {
	Locator string
}

// Reply is what the channel adapter should send back.
type Reply struct {
	Text         string
	MediaBytes   []byte
	MediaCaption string
}

// Empty reports whether there is nothing to send. Empty-prompt events
// produce this; channels skip them.
func (r Reply) Empty() bool {
	return r.Text == "" && len(r.MediaBytes) == 0
}

type Options struct {
	Classifier *intent.Classifier
	Sessions   *session.Store
	Cache      *cache.Cache
	Text       genai.TextGenerator
	Image      genai.ImageGenerator
	Workflow   *compose.Workflow

	// Optional extensions; nil disables them.
	Transcript *transcript.Store
	Archive    *artifact.Client

	// Timeout bounds each external generation call.
	Timeout time.Duration
}

// Router classifies inbound events, moves per-user state, consults the
// response cache, and talks to the generation collaborators. Every
// collaborator failure stops here; callers always get a Reply.
type Router struct {
	classifier *intent.Classifier
	sessions   *session.Store
	cache      *cache.Cache
	text       genai.TextGenerator
	image      genai.ImageGenerator
	workflow   *compose.Workflow
	transcript *transcript.Store
	archive    *artifact.Client
	timeout    time.Duration
}

func New(opts Options) *Router {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = intent.NewClassifier(nil, nil)
	}

	return &Router{
		classifier: classifier,
		sessions:   opts.Sessions,
		cache:      opts.Cache,
		text:       opts.Text,
		image:      opts.Image,
		workflow:   opts.Workflow,
		transcript: opts.Transcript,
		archive:    opts.Archive,
		timeout:    timeout,
	}
}

// Handle processes one inbound event end to end. Events for the same
// user are handled strictly in arrival order; distinct users proceed in
// parallel.
func (r *Router) Handle(ctx context.Context, ev Event) Reply {
	sess := r.sessions.Get(ev.UserID)
	sess.Acquire()
	defer sess.Release()

	// an attachment always wins, even when the caption carries trigger
	// text; combining never happens on the receiving event
	if ev.Media != nil {
		n := sess.AppendMedia(session.MediaRef{Locator: ev.Media.Locator, ReceivedAt: time.Now()})
		logger.Info("media received", "user", ev.UserID, "buffered", n)
		return Reply{Text: fmt.Sprintf(replyMediaAck, n)}
	}

	switch r.classifier.Classify(ev.Text) {
	case intent.ImageCombine:
		return r.handleCombine(ctx, ev, sess)
	case intent.ImageGenerate:
		return r.handleGenerate(ctx, ev, sess)
	default:
		return r.handleText(ctx, ev, sess)
	}
}

func (r *Router) handleText(ctx context.Context, ev Event, sess *session.Session) Reply {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		// no-op reply request, not an error
		return Reply{}
	}

	// the combined prompt carries the history snapshot, so the key is
	// context-sensitive and never reuses a reply across changed history
	prompt := buildPrompt(sess.History(), text)
	key := cache.Key("text", prompt)

	res, err := r.cache.GetOrCompute(key, func() (genai.Result, error) {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.text.GenerateText(cctx, prompt)
	})
	if err != nil {
		logger.Error("text generation failed", "user", ev.UserID, "error", err)
		return Reply{Text: replyFailure}
	}

	replyText := strings.TrimSpace(res.Text)
	if replyText == "" {
		replyText = replyNoResponse
	}

	r.commit(ev.UserID, sess,
		session.Turn{Speaker: session.SpeakerUser, Text: text, At: time.Now()},
		session.Turn{Speaker: session.SpeakerBot, Text: replyText, At: time.Now()},
	)

	return Reply{Text: replyText}
}

func (r *Router) handleGenerate(ctx context.Context, ev Event, sess *session.Session) Reply {
	prompt := normalizePrompt(ev.Text)
	key := cache.Key("image", strings.ToLower(prompt))

	res, err := r.cache.GetOrCompute(key, func() (genai.Result, error) {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.image.GenerateImage(cctx, prompt, nil)
	})
	if err != nil {
		logger.Error("image generation failed", "user", ev.UserID, "error", err)
		return Reply{Text: replyFailure}
	}

	if len(res.MediaBytes) == 0 {
		// the provider declined and answered in text; a normal branch
		declined := strings.TrimSpace(res.Text)
		if declined == "" {
			declined = replyDeclined
		}
		logger.Info("image generation declined", "user", ev.UserID)
		return Reply{Text: declined}
	}

	caption := strings.TrimSpace(res.Text)
	if caption == "" {
		caption = prompt
	}

	r.commit(ev.UserID, sess,
		session.Turn{Speaker: session.SpeakerUser, Text: prompt, At: time.Now()},
		session.Turn{Speaker: session.SpeakerBot, Text: imagePlaceholder, At: time.Now()},
	)
	r.archiveImage(res.MediaBytes, prompt)

	return Reply{MediaBytes: res.MediaBytes, MediaCaption: caption}
}

func (r *Router) handleCombine(ctx context.Context, ev Event, sess *session.Session) Reply {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.workflow.Combine(cctx, ev.UserID, sess)
	if errors.Is(err, compose.ErrInsufficientMedia) {
		return Reply{Text: replyNeedMoreImages}
	}
	if err != nil {
		logger.Error("combine failed", "user", ev.UserID, "error", err)
		return Reply{Text: replyFailure}
	}

	if len(res.MediaBytes) == 0 {
		logger.Info("combine declined", "user", ev.UserID)
		return Reply{Text: replyCombineDeclined}
	}

	r.commit(ev.UserID, sess,
		session.Turn{Speaker: session.SpeakerBot, Text: combineSummary, At: time.Now()},
	)
	r.archiveImage(res.MediaBytes, "combine")

	return Reply{MediaBytes: res.MediaBytes, MediaCaption: replyCombineCaption}
}

// commit appends turns to the in-memory history and mirrors them into
// the durable transcript. Transcript failures are logged and swallowed;
// in-memory state is already consistent and stays untouched.
func (r *Router) commit(userID string, sess *session.Session, turns ...session.Turn) {
	for _, t := range turns {
		sess.AppendTurn(t)

		if r.transcript != nil {
			if err := r.transcript.Add(userID, string(t.Speaker), t.Text); err != nil {
				logger.Error("transcript write failed", "user", userID, "error", err)
			}
		}
	}
}

func (r *Router) archiveImage(data []byte, prompt string) {
	if r.archive == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		name, err := r.archive.SaveImage(ctx, data, prompt)
		if err != nil {
			logger.Error("artifact upload failed", "error", err)
			return
		}
		logger.Debug("artifact archived", "object", name)
	}()
}

// Stats feed the channels' /status command.
type Stats struct {
	Users        int
	CacheEntries int
}

func (r *Router) Stats() Stats {
	return Stats{Users: r.sessions.Len(), CacheEntries: r.cache.Len()}
}

// buildPrompt renders the retained history oldest-to-newest and appends
// the new message, mirroring how users see the conversation.
func buildPrompt(history []session.Turn, text string) string {
	if len(history) == 0 {
		return text
	}

	var sb strings.Builder
	for _, t := range history {
		sb.WriteString(speakerLabel(t.Speaker))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(text)

	return sb.String()
}

func speakerLabel(s session.Speaker) string {
	if s == session.SpeakerBot {
		return "Bot"
	}
	return "User"
}

// normalizePrompt trims and collapses internal whitespace.
func normalizePrompt(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
