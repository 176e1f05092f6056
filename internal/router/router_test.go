package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arifsetiawan/gambot/internal/cache"
	"github.com/arifsetiawan/gambot/internal/compose"
	"github.com/arifsetiawan/gambot/internal/genai"
	"github.com/arifsetiawan/gambot/internal/session"
)

type fakeTextGen struct {
	calls   int32
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeTextGen) GenerateText(ctx context.Context, prompt string) (genai.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	f.prompts = append(f.prompts, prompt)

	if f.block {
		<-ctx.Done()
		return genai.Result{}, ctx.Err()
	}
	if f.err != nil {
		return genai.Result{}, f.err
	}
	return genai.Result{Text: f.reply}, nil
}

type fakeImageGen struct {
	calls   int32
	prompts []string
	refs    [][]byte
	res     genai.Result
	err     error
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt string, refs [][]byte) (genai.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	f.prompts = append(f.prompts, prompt)
	f.refs = refs
	if f.err != nil {
		return genai.Result{}, f.err
	}
	return f.res, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return []byte("bytes:" + locator), nil
}

func newTestRouter(text *fakeTextGen, image *fakeImageGen) *Router {
	c := cache.New(0)
	return New(Options{
		Sessions: session.NewStore(5),
		Cache:    c,
		Text:     text,
		Image:    image,
		Workflow: compose.NewWorkflow(image, c, fakeFetcher{}),
		Timeout:  time.Second,
	})
}

func TestHandleTextConversation(t *testing.T) {
	text := &fakeTextGen{reply: "hi"}
	r := newTestRouter(text, &fakeImageGen{})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})

	if reply.Text != "hi" {
		t.Errorf("expected reply hi, got %q", reply.Text)
	}

	if len(text.prompts) != 1 || text.prompts[0] != "hello" {
		t.Errorf("first prompt should be the bare message, got %v", text.prompts)
	}

	turns := r.sessions.Get("u1").History()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Speaker != session.SpeakerUser || turns[0].Text != "hello" {
		t.Errorf("user turn mismatch: %+v", turns[0])
	}
	if turns[1].Speaker != session.SpeakerBot || turns[1].Text != "hi" {
		t.Errorf("bot turn mismatch: %+v", turns[1])
	}
}

func TestHandleTextPromptCarriesHistory(t *testing.T) {
	text := &fakeTextGen{reply: "hi"}
	r := newTestRouter(text, &fakeImageGen{})

	r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})
	r.Handle(context.Background(), Event{UserID: "u1", Text: "how are you?"})

	if len(text.prompts) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(text.prompts))
	}

	want := "User: hello\nBot: hi\nhow are you?"
	if text.prompts[1] != want {
		t.Errorf("second prompt mismatch:\nwant %q\ngot  %q", want, text.prompts[1])
	}
}

func TestHandleTextEmptyIsNoOp(t *testing.T) {
	text := &fakeTextGen{reply: "hi"}
	r := newTestRouter(text, &fakeImageGen{})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "   "})

	if !reply.Empty() {
		t.Errorf("whitespace-only message should yield an empty reply, got %+v", reply)
	}

	if text.calls != 0 {
		t.Error("generator must not run for an empty prompt")
	}
}

func TestHandleTextEmptyProviderReply(t *testing.T) {
	text := &fakeTextGen{reply: "   "}
	r := newTestRouter(text, &fakeImageGen{})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})

	if reply.Text != replyNoResponse {
		t.Errorf("expected fallback message, got %q", reply.Text)
	}
}

func TestHandleTextRepeatHitsCache(t *testing.T) {
	text := &fakeTextGen{reply: "answer"}
	r := newTestRouter(text, &fakeImageGen{})

	// two users, identical empty history and identical question
	r.Handle(context.Background(), Event{UserID: "u1", Text: "what is go?"})
	r.Handle(context.Background(), Event{UserID: "u2", Text: "what is go?"})

	if text.calls != 1 {
		t.Errorf("identical prompt should be served from cache, got %d calls", text.calls)
	}
}

func TestHandleGenerateImage(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{MediaBytes: []byte("png-bytes")}}
	r := newTestRouter(&fakeTextGen{}, image)

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "generate image of a cat"})

	if string(reply.MediaBytes) != "png-bytes" {
		t.Fatalf("expected image bytes, got %q", reply.MediaBytes)
	}

	// caption falls back to the prompt when the provider supplied none
	if reply.MediaCaption != "generate image of a cat" {
		t.Errorf("caption fallback mismatch: %q", reply.MediaCaption)
	}

	turns := r.sessions.Get("u1").History()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Text != imagePlaceholder {
		t.Errorf("bot turn should be the image placeholder, got %q", turns[1].Text)
	}
}

func TestHandleGenerateDeclined(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{Text: "that prompt is too vague"}}
	r := newTestRouter(&fakeTextGen{}, image)

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "draw something"})

	if len(reply.MediaBytes) != 0 {
		t.Error("declined result must not carry media")
	}

	if reply.Text != "that prompt is too vague" {
		t.Errorf("expected the provider's text, got %q", reply.Text)
	}

	// declined is not committed to history
	if got := len(r.sessions.Get("u1").History()); got != 0 {
		t.Errorf("declined generation should not touch history, got %d turns", got)
	}
}

func TestMediaReceiptAcknowledged(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{MediaBytes: []byte("composite")}}
	r := newTestRouter(&fakeTextGen{}, image)

	first := r.Handle(context.Background(), Event{UserID: "u1", Media: &Attachment{Locator: "url-a"}})
	second := r.Handle(context.Background(), Event{UserID: "u1", Media: &Attachment{Locator: "url-b"}})

	if first.Text != fmt.Sprintf(replyMediaAck, 1) {
		t.Errorf("first ack mismatch: %q", first.Text)
	}
	if second.Text != fmt.Sprintf(replyMediaAck, 2) {
		t.Errorf("second ack mismatch: %q", second.Text)
	}

	if image.calls != 0 {
		t.Error("media receipt must not trigger generation")
	}
}

func TestMediaReceiptWinsOverCombineCaption(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{MediaBytes: []byte("composite")}}
	r := newTestRouter(&fakeTextGen{}, image)

	sess := r.sessions.Get("u1")
	sess.AppendMedia(session.MediaRef{Locator: "url-a"})
	sess.AppendMedia(session.MediaRef{Locator: "url-b"})

	// attachment plus combine-trigger caption: pure media receipt
	reply := r.Handle(context.Background(), Event{
		UserID: "u1",
		Text:   "combine images",
		Media:  &Attachment{Locator: "url-c"},
	})

	if reply.Text != fmt.Sprintf(replyMediaAck, 3) {
		t.Errorf("expected ack for 3 items, got %q", reply.Text)
	}

	if image.calls != 0 {
		t.Error("combination must not run on the receiving event")
	}
}

func TestCombineEndToEnd(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{MediaBytes: []byte("composite")}}
	r := newTestRouter(&fakeTextGen{}, image)

	r.Handle(context.Background(), Event{UserID: "u1", Media: &Attachment{Locator: "url-a"}})
	r.Handle(context.Background(), Event{UserID: "u1", Media: &Attachment{Locator: "url-b"}})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "combine images"})

	if string(reply.MediaBytes) != "composite" {
		t.Fatalf("expected composite bytes, got %q", reply.MediaBytes)
	}

	if image.calls != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", image.calls)
	}

	if len(image.refs) != 2 || string(image.refs[0]) != "bytes:url-a" || string(image.refs[1]) != "bytes:url-b" {
		t.Errorf("generator should receive both buffered images, got %v", image.refs)
	}

	turns := r.sessions.Get("u1").History()
	if len(turns) != 1 || turns[0].Speaker != session.SpeakerBot {
		t.Fatalf("expected one synthetic bot turn, got %+v", turns)
	}
	if !strings.Contains(turns[0].Text, "Combined") {
		t.Errorf("bot turn should summarize the action, got %q", turns[0].Text)
	}
}

func TestCombineInsufficientMedia(t *testing.T) {
	image := &fakeImageGen{res: genai.Result{MediaBytes: []byte("composite")}}
	r := newTestRouter(&fakeTextGen{}, image)

	r.Handle(context.Background(), Event{UserID: "u1", Media: &Attachment{Locator: "url-a"}})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "combine images"})

	if reply.Text != replyNeedMoreImages {
		t.Errorf("expected guidance message, got %q", reply.Text)
	}

	sess := r.sessions.Get("u1")
	if sess.MediaCount() != 1 {
		t.Error("guard must leave the media buffer unchanged")
	}
	if len(sess.History()) != 0 {
		t.Error("guard must leave history unchanged")
	}
}

func TestGenerationFailureLeavesStateUntouched(t *testing.T) {
	text := &fakeTextGen{err: errors.New("provider down")}
	r := newTestRouter(text, &fakeImageGen{})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})

	if reply.Text != replyFailure {
		t.Errorf("expected generic failure reply, got %q", reply.Text)
	}

	if got := len(r.sessions.Get("u1").History()); got != 0 {
		t.Errorf("failure must not append turns, got %d", got)
	}

	// failure was not cached; the retry reaches the provider again
	text.err = nil
	text.reply = "recovered"

	reply = r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})
	if reply.Text != "recovered" {
		t.Errorf("retry should succeed, got %q", reply.Text)
	}
	if text.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", text.calls)
	}
}

func TestGenerationTimeout(t *testing.T) {
	text := &fakeTextGen{block: true}
	c := cache.New(0)
	image := &fakeImageGen{}
	r := New(Options{
		Sessions: session.NewStore(5),
		Cache:    c,
		Text:     text,
		Image:    image,
		Workflow: compose.NewWorkflow(image, c, fakeFetcher{}),
		Timeout:  20 * time.Millisecond,
	})

	reply := r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})

	if reply.Text != replyFailure {
		t.Errorf("timeout should surface as the generic failure reply, got %q", reply.Text)
	}

	if got := len(r.sessions.Get("u1").History()); got != 0 {
		t.Errorf("timed-out call must not append turns, got %d", got)
	}

	// the in-flight marker was cleared, so the same request retries
	text.block = false
	text.reply = "late but fine"

	reply = r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})
	if reply.Text != "late but fine" {
		t.Errorf("retry after timeout should succeed, got %q", reply.Text)
	}
}

func TestStats(t *testing.T) {
	text := &fakeTextGen{reply: "hi"}
	r := newTestRouter(text, &fakeImageGen{})

	r.Handle(context.Background(), Event{UserID: "u1", Text: "hello"})
	r.Handle(context.Background(), Event{UserID: "u2", Text: "hey"})

	stats := r.Stats()
	if stats.Users != 2 {
		t.Errorf("expected 2 users, got %d", stats.Users)
	}
	if stats.CacheEntries != 2 {
		t.Errorf("expected 2 cache entries, got %d", stats.CacheEntries)
	}
}
