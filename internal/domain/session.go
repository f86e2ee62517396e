package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Turn is one completed query/response exchange.
type Turn struct {
	Query    string
	Response string
}

// SessionContext accumulates the turns of one interactive run.
// It is append-only and owned by a single session loop.
type SessionContext struct {
	id    string
	turns []Turn
}

// NewSessionContext creates an empty session with a fresh identifier.
func NewSessionContext() *SessionContext {
	return &SessionContext{id: uuid.NewString()}
}

// ID returns the session identifier.
func (s *SessionContext) ID() string { return s.id }

// Append records a completed turn.
func (s *SessionContext) Append(query, response string) {
	s.turns = append(s.turns, Turn{Query: query, Response: response})
}

// Turns returns a copy of the recorded turns, oldest first.
func (s *SessionContext) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *SessionContext) Len() int { return len(s.turns) }

// History renders the last n turns as prompt text. n <= 0 renders nothing.
func (s *SessionContext) History(n int) string {
	if n <= 0 || len(s.turns) == 0 {
		return ""
	}
	start := max(0, len(s.turns)-n)

	var b strings.Builder
	for _, t := range s.turns[start:] {
		fmt.Fprintf(&b, "User query: %s\nResponse: %s\n", t.Query, t.Response)
	}
	return b.String()
}
