// Package msglog keeps, per chat, the ids of messages the relay has seen from
// users and sent as the bot. It lives only for the lifetime of the process.
package msglog

import (
	"sort"
	"sync"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Entry is a point-in-time copy of one conversation's ids, oldest first.
type Entry struct {
	User []int `json:"user"`
	Bot  []int `json:"bot"`
}

type conversation struct {
	mu   sync.Mutex
	user []int
	bot  []int
}

func (c *conversation) seq(role Role) *[]int {
	if role == RoleUser {
		return &c.user
	}
	return &c.bot
}

// Store maps chat id to its message ids. Mutations on one chat are serialized
// by that chat's mutex; different chats never contend beyond map lookup.
type Store struct {
	mu            sync.RWMutex
	conversations map[int64]*conversation
	maxPerRole    int
}

// NewStore returns a store that keeps at most maxPerRole ids per role and chat,
// dropping the oldest on overflow. maxPerRole <= 0 disables the cap.
func NewStore(maxPerRole int) *Store {
	return &Store{
		conversations: make(map[int64]*conversation),
		maxPerRole:    maxPerRole,
	}
}

func (s *Store) get(chatID int64) (*conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[chatID]
	return c, ok
}

func (s *Store) getOrCreate(chatID int64) *conversation {
	if c, ok := s.get(chatID); ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[chatID]; ok {
		return c
	}
	c := &conversation{}
	s.conversations[chatID] = c
	return c
}

func (s *Store) Append(chatID int64, role Role, messageID int) {
	c := s.getOrCreate(chatID)

	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.seq(role)
	*seq = append(*seq, messageID)
	if s.maxPerRole > 0 && len(*seq) > s.maxPerRole {
		drop := len(*seq) - s.maxPerRole
		*seq = append((*seq)[:0:0], (*seq)[drop:]...)
	}
}

// TrimLast removes up to n of the most recent ids for role and returns them
// oldest first. Reading and removing happen under one lock, so a concurrent
// Append can never be dropped in place of a trimmed id.
func (s *Store) TrimLast(chatID int64, role Role, n int) []int {
	if n <= 0 {
		return nil
	}
	c, ok := s.get(chatID)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.seq(role)
	if n > len(*seq) {
		n = len(*seq)
	}
	cut := len(*seq) - n
	removed := make([]int, n)
	copy(removed, (*seq)[cut:])
	*seq = (*seq)[:cut]
	return removed
}

// Remove deletes messageID from whichever role holds it and reports the role.
func (s *Store) Remove(chatID int64, messageID int) (Role, bool) {
	c, ok := s.get(chatID)
	if !ok {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, role := range []Role{RoleBot, RoleUser} {
		seq := c.seq(role)
		for i, id := range *seq {
			if id == messageID {
				*seq = append((*seq)[:i], (*seq)[i+1:]...)
				return role, true
			}
		}
	}
	return "", false
}

func (s *Store) Snapshot(chatID int64) Entry {
	c, ok := s.get(chatID)
	if !ok {
		return Entry{User: []int{}, Bot: []int{}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Entry{
		User: append([]int{}, c.user...),
		Bot:  append([]int{}, c.bot...),
	}
}

// ChatIDs lists known conversations in ascending order.
func (s *Store) ChatIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
