package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrEmptyMessage = errors.New("El mensaje está vacío")
	ErrBusy         = errors.New("El asistente aún está respondiendo")
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is one append-only conversation. At most one request is in
// flight; only the latest message is sent to the advisor.
type Transcript struct {
	advisor *Advisor

	mu    sync.Mutex
	turns []Turn
	busy  bool
}

func NewTranscript(a *Advisor) *Transcript {
	return &Transcript{advisor: a}
}

// Send appends the user turn, asks the advisor and appends its reply, which is
// also returned.
func (t *Transcript) Send(ctx context.Context, text, caseContext string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return Turn{}, ErrBusy
	}
	t.busy = true
	t.turns = append(t.turns, Turn{Speaker: SpeakerUser, Text: text})
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()

	reply := Turn{Speaker: SpeakerAssistant, Text: t.advisor.GetAdvice(ctx, text, caseContext)}

	t.mu.Lock()
	t.turns = append(t.turns, reply)
	t.mu.Unlock()
	return reply, nil
}

// Turns returns a copy of the conversation so far.
func (t *Transcript) Turns() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append(make([]Turn, 0, len(t.turns)), t.turns...)
}

func (t *Transcript) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Registry keeps one transcript per signed-in user, in memory only.
type Registry struct {
	advisor *Advisor

	mu     sync.Mutex
	byUser map[string]*Transcript
}

func NewRegistry(a *Advisor) *Registry {
	return &Registry{advisor: a, byUser: map[string]*Transcript{}}
}

// For returns the user's transcript, creating it on first use.
func (r *Registry) For(userID string) *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byUser[userID]
	if !ok {
		t = NewTranscript(r.advisor)
		r.byUser[userID] = t
	}
	return t
}

// Turns is the user's conversation, empty when none was started.
func (r *Registry) Turns(userID string) []Turn {
	r.mu.Lock()
	t, ok := r.byUser[userID]
	r.mu.Unlock()
	if !ok {
		return []Turn{}
	}
	return t.Turns()
}

// Drop forgets the user's transcript. A reply still in flight lands in the
// detached transcript and is lost.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.byUser, userID)
	r.mu.Unlock()
}
