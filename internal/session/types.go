package session

import (
	"sync"
	"time"
)

const DefaultHistoryWindow = 5

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Turn is one exchange unit in a conversation history.
type Turn struct {
	Speaker Speaker
	Text    string
	At      time.Time
}

// MediaRef is a lightweight reference to a received media item. The
// locator is whatever the channel can later resolve back to bytes
// (a download URL for Telegram and Discord).
type MediaRef struct {
	Locator    string
	ReceivedAt time.Time
}

// Session holds the per-user conversational state: a bounded history log
// and a media buffer that grows until a combine request reads it.
type Session struct {
	mu      sync.Mutex
	window  int
	history []Turn
	media   []MediaRef

	// processing serializes full event handling for one user. The inner
	// mu only guards the slices and is never held across external calls.
	processing sync.Mutex
}

type Store struct {
	mu       sync.RWMutex
	window   int
	sessions map[string]*Session
}
