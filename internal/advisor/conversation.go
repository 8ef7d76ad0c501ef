package advisor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Greeting opens every conversation.
const Greeting = "Hi! I'm your nutrition assistant. I can help you with calorie tracking, meal planning, and nutrition advice. How can I help you today?"

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transient chat message. Messages are never persisted.
type Message struct {
	ID   string
	Role Role
	Text string
}

// ErrBusy is returned when a question is sent while another is in flight.
var ErrBusy = errors.New("still waiting for the previous answer")

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Conversation is a session-only chat history with its own in-flight flag.
type Conversation struct {
	advisor *Advisor

	mu       sync.Mutex
	messages []Message
	pending  bool
}

// NewConversation starts a history containing the assistant greeting.
func NewConversation(a *Advisor) *Conversation {
	return &Conversation{
		advisor:  a,
		messages: []Message{newMessage(RoleAssistant, Greeting)},
	}
}

// Send appends the user's message, asks the advisor, and appends the reply.
// The reply is returned; failures have already been turned into fallback text.
func (c *Conversation) Send(ctx context.Context, text string, snap Snapshot) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.pending = true
	c.messages = append(c.messages, newMessage(RoleUser, text))
	c.mu.Unlock()

	reply := newMessage(RoleAssistant, c.advisor.Ask(ctx, text, snap))

	c.mu.Lock()
	c.messages = append(c.messages, reply)
	c.pending = false
	c.mu.Unlock()
	return reply, nil
}

// Pending reports whether a request is in flight.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func newMessage(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text}
}
