// Package session tracks conversational state for the query engine: turn
// history, the active tenant entity, and the topics a conversation has
// touched. Sessions are safe for concurrent use; each session serializes
// its own writers.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medleyre/leasehound/internal/ai"
)

// DefaultContextWindow is the number of recent turns fed to reformulation
// and generation when no window is configured.
const DefaultContextWindow = 3

// Turn is one completed exchange. Turns are appended only after an answer
// was produced, so every stored turn is a complete question/answer pair.
type Turn struct {
	// Ordinal is the 1-based position of the turn. Ordinals are strictly
	// increasing with no gaps.
	Ordinal int `json:"ordinal"`

	Utterance string `json:"utterance"`
	Answer    string `json:"answer"`

	// Entities are the tenant names mentioned in the utterance.
	Entities []string `json:"entities,omitempty"`

	// Topics are the topic categories the utterance touched.
	Topics []string `json:"topics,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Session holds the state of one conversation.
type Session struct {
	ID string

	mu           sync.Mutex
	turns        []Turn
	activeEntity string
	topicsSeen   map[string]struct{}
	createdAt    time.Time
	lastActive   time.Time
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		topicsSeen: make(map[string]struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

// AppendTurn records a completed exchange. The ordinal is assigned here so
// concurrent callers can never produce duplicates or gaps. The turn's
// effects on session state (history, active entity, topics, activity time)
// all commit here, atomically; a turn that never completes leaves the
// session exactly as it was.
func (s *Session) AppendTurn(utterance, answer string, entities, topics []string) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := Turn{
		Ordinal:   len(s.turns) + 1,
		Utterance: utterance,
		Answer:    answer,
		Entities:  entities,
		Topics:    topics,
		Timestamp: time.Now(),
	}
	s.turns = append(s.turns, turn)

	s.activeEntity = resolveEntity(s.activeEntity, entities)
	for _, topic := range topics {
		s.topicsSeen[topic] = struct{}{}
	}
	s.lastActive = time.Now()

	return turn
}

// Turns returns a copy of the full turn history.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of completed turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// RecentContext returns the last window turns as exchanges, oldest first.
// window <= 0 uses DefaultContextWindow.
func (s *Session) RecentContext(window int) []ai.Exchange {
	if window <= 0 {
		window = DefaultContextWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.turns) - window
	if start < 0 {
		start = 0
	}

	exchanges := make([]ai.Exchange, 0, len(s.turns)-start)
	for _, turn := range s.turns[start:] {
		exchanges = append(exchanges, ai.Exchange{
			User:      turn.Utterance,
			Assistant: turn.Answer,
		})
	}
	return exchanges
}

// resolveEntity computes the active-entity transition for a turn that
// mentions the given tenant names.
//
// Rules: no mention keeps the current entity; one mention sets it when the
// session is unfocused or reaffirms it when it matches; a single mention of
// a DIFFERENT tenant clears the focus rather than guessing at a switch, as
// does mentioning two or more. A cleared focus re-establishes on the next
// unambiguous mention.
func resolveEntity(current string, mentioned []string) string {
	switch len(mentioned) {
	case 0:
		return current
	case 1:
		if current == "" || mentioned[0] == current {
			return mentioned[0]
		}
		return ""
	default:
		return ""
	}
}

// PeekEntity reports what the active entity will be once a turn mentioning
// the given tenants commits. It reads session state without modifying it,
// so a turn that later fails leaves no trace.
func (s *Session) PeekEntity(mentioned []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := resolveEntity(s.activeEntity, mentioned)
	return entity, entity != ""
}

// ActiveEntity returns the tenant the conversation is currently about.
func (s *Session) ActiveEntity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeEntity, s.activeEntity != ""
}

// TopicsSeen returns the sorted set of topics touched so far.
func (s *Session) TopicsSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]string, 0, len(s.topicsSeen))
	for t := range s.topicsSeen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// LastActive returns the time of the most recent activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Summary describes the conversation in one line for session listings.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parts []string
	parts = append(parts, fmt.Sprintf("%d turns", len(s.turns)))
	if s.activeEntity != "" {
		parts = append(parts, "about "+s.activeEntity)
	}
	if len(s.topicsSeen) > 0 {
		topics := make([]string, 0, len(s.topicsSeen))
		for t := range s.topicsSeen {
			topics = append(topics, t)
		}
		sort.Strings(topics)
		parts = append(parts, "topics: "+strings.Join(topics, ", "))
	}
	return strings.Join(parts, ", ")
}

// SuggestFollowUps proposes questions about lease topics the conversation
// has not touched yet. Suggestions are phrased against the active entity
// when one is set.
func (s *Session) SuggestFollowUps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject := "this tenant"
	if s.activeEntity != "" {
		subject = s.activeEntity
	}

	templates := map[string]string{
		TopicFinancial: "What is the base rent for %s?",
		TopicDates:     "When does the lease for %s expire?",
		TopicTerms:     "What are the renewal options for %s?",
	}

	// Stable order over the topic categories.
	order := []string{TopicFinancial, TopicDates, TopicTerms}

	var suggestions []string
	for _, topic := range order {
		if _, seen := s.topicsSeen[topic]; seen {
			continue
		}
		suggestions = append(suggestions, fmt.Sprintf(templates[topic], subject))
	}
	return suggestions
}
