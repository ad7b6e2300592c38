// Package session tracks per-conversation state: the message
// transcript, the tables chosen for the latest answered question, the
// generated SQL, and the cached result sets backing the data views.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrTableNotFound = errors.New("no data cached for table")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	// RoleTableData marks a transcript entry whose content is the name
	// of a table whose cached result set should be rendered inline.
	RoleTableData = "table_data"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one conversation. turnMu serializes whole turns so a
// client's messages are processed in order; mu guards the state fields
// and is never held across a network call.
type Session struct {
	ID string

	turnMu sync.Mutex

	mu           sync.Mutex
	messages     []Message
	chosenTables []string
	tablesData   map[string]warehouse.ResultSet
	generatedSQL string
}

func newSession(id string) *Session {
	return &Session{ID: id, tablesData: make(map[string]warehouse.ResultSet)}
}

// BeginTurn blocks until any in-flight turn for this session finishes.
// Every BeginTurn must be paired with EndTurn.
func (s *Session) BeginTurn() { s.turnMu.Lock() }

func (s *Session) EndTurn() { s.turnMu.Unlock() }

// TurnUpdate is the full outcome of one answered turn, applied
// atomically by CommitTurn.
type TurnUpdate struct {
	Question string
	Answer   string
	Tables   []string
	SQL      string
	Results  map[string]warehouse.ResultSet
}

// CommitTurn appends the turn's messages and replaces the cached data
// for every table the turn produced results for. Earlier results for
// other tables stay cached.
func (s *Session) CommitTurn(update TurnUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, Message{Role: RoleUser, Content: update.Question})
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: update.Answer})
	if update.SQL != "" {
		s.generatedSQL = update.SQL
	}
	if len(update.Tables) > 0 {
		s.chosenTables = append([]string(nil), update.Tables...)
	}
	for _, table := range update.Tables {
		result, ok := update.Results[table]
		if !ok {
			continue
		}
		s.tablesData[table] = result
		s.messages = append(s.messages, Message{Role: RoleTableData, Content: table})
	}
}

// CommitFailedTurn records only the user's question so a retry after a
// failure does not replay a half-finished turn.
func (s *Session) CommitFailedTurn(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: RoleUser, Content: question})
}

// RecentHistory returns the last n user and assistant messages, oldest
// first. Table data entries are transcript-only and excluded.
func (s *Session) RecentHistory(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []Message
	for _, msg := range s.messages {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			history = append(history, msg)
		}
	}
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]Message(nil), history...)
}

// Messages returns a copy of the full transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// ChosenTables returns the tables selected for the latest answered
// question.
func (s *Session) ChosenTables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chosenTables...)
}

// GeneratedSQL returns the most recently generated statement.
func (s *Session) GeneratedSQL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generatedSQL
}

// TableData returns the cached result set for a table.
func (s *Session) TableData(table string) (warehouse.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.tablesData[table]
	if !ok {
		return warehouse.ResultSet{}, ErrTableNotFound
	}
	return result, nil
}

// Reset clears the conversation back to its initial state. Resetting
// an already-empty session is a no-op.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.chosenTables = nil
	s.tablesData = make(map[string]warehouse.ResultSet)
	s.generatedSQL = ""
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session under a fresh ID.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := newSession(uuid.NewString())
	m.sessions[sess.ID] = sess
	observability.SetActiveSessions(len(m.sessions))
	return sess
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	observability.SetActiveSessions(len(m.sessions))
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
