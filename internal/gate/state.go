// Package gate requires bot users to view a Botads ad before a protected action, at most once per interval.
package gate

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// Pending modes of a user who has been asked to view an ad.
const (
	PendingRewarded   = "rewarded"
	PendingDirectLink = "direct_link"
)

// ErrNotFound is returned by a Store for a user it has never saved.
var ErrNotFound = errors.New("gate: user state not found")

// UserState is everything the gate remembers about a bot user.
type UserState struct {
	UserID              int64     `json:"user_id"`
	ChatID              int64     `json:"chat_id"`
	LastUnlock          time.Time `json:"last_unlock,omitzero"`
	DirectLinkMessageID int       `json:"direct_link_message_id,omitempty"`
	PendingMode         string    `json:"pending_mode,omitempty"`
	AdMessageIDs        []int     `json:"ad_message_ids,omitempty"`
}

func (s *UserState) clone() *UserState {
	c := *s
	c.AdMessageIDs = slices.Clone(s.AdMessageIDs)
	return &c
}

func (s *UserState) forgetMessage(id int) {
	s.AdMessageIDs = slices.DeleteFunc(s.AdMessageIDs, func(m int) bool { return m == id })
}

// Store persists UserState by user ID.
type Store interface {
	Get(ctx context.Context, userID int64) (*UserState, error)
	Save(ctx context.Context, state *UserState) error
}

// MemoryStore keeps states in process. The zero value is ready to use.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*UserState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*UserState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, state *UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[int64]*UserState)
	}
	m.states[state.UserID] = state.clone()
	return nil
}
