package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// previewRunes caps the last-message preview stored on a chat.
const previewRunes = 50

// Memory entry kinds accepted by AppendMemoryEntry.
const (
	MemoryDiary = "diary"
	MemoryCore  = "core"
)

//
// Chats
//

// GetChat returns the chat of friendID or ErrNotFound.
func (s *EntityStore) GetChat(ctx context.Context, friendID string) (*domain.Chat, error) {
	chats, err := s.loadChats(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := chats[friendID]
	if !ok {
		return nil, fmt.Errorf("chat %q: %w", friendID, ErrNotFound)
	}
	return &c, nil
}

// SaveChat replaces the chat of an existing friend.
func (s *EntityStore) SaveChat(ctx context.Context, chat domain.Chat) error {
	_, err := s.mutateChat(ctx, chat.FriendID, func(c *domain.Chat) error {
		*c = chat
		if c.Messages == nil {
			c.Messages = []domain.Message{}
		}
		return nil
	})
	return err
}

// DeleteChat removes the chat of friendID. Deleting an absent chat succeeds.
func (s *EntityStore) DeleteChat(ctx context.Context, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.loadChats(ctx)
	if err != nil {
		return err
	}
	if _, ok := chats[friendID]; !ok {
		return nil
	}
	delete(chats, friendID)
	return commit(ctx, s.KV, repo.Put(keyChats, chats))
}

// AppendMessage adds msg to the chat of friendID, creating the chat on first
// use, and refreshes the preview and last-update time.
func (s *EntityStore) AppendMessage(ctx context.Context, friendID string, msg domain.Message) (*domain.Chat, error) {
	switch msg.Type {
	case domain.MessageUser, domain.MessageAI:
	default:
		return nil, fmt.Errorf("message type %q: %w", msg.Type, ErrInvalidFormat)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	return s.mutateChat(ctx, friendID, func(c *domain.Chat) error {
		appendTo(c, msg)
		return nil
	})
}

// appendTo adds msg to c and refreshes the preview and last-update time.
func appendTo(c *domain.Chat, msg domain.Message) {
	c.Messages = append(c.Messages, msg)
	c.LastMessage = preview(msg.Text)
	c.LastUpdate = msg.Timestamp
}

// mutateChat loads (or zero-initializes) the chat of an existing friend,
// applies fn and persists the result.
func (s *EntityStore) mutateChat(ctx context.Context, friendID string, fn func(*domain.Chat) error) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	friends, err := s.loadFriends(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := friends[friendID]; !ok {
		return nil, fmt.Errorf("friend %q: %w", friendID, ErrNotFound)
	}
	chats, err := s.loadChats(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := chats[friendID]
	if !ok {
		c = domain.Chat{FriendID: friendID, Messages: []domain.Message{}}
	}
	if err := fn(&c); err != nil {
		return nil, err
	}
	c.FriendID = friendID
	chats[friendID] = c
	if err := commit(ctx, s.KV, repo.Put(keyChats, chats)); err != nil {
		return nil, err
	}
	return &c, nil
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}

//
// Memories
//

// GetMemory returns the memory of friendID or ErrNotFound. Memories outlive
// their friend unless purged.
func (s *EntityStore) GetMemory(ctx context.Context, friendID string) (*domain.Memory, error) {
	memories, err := s.loadMemories(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := memories[friendID]
	if !ok {
		return nil, fmt.Errorf("memory %q: %w", friendID, ErrNotFound)
	}
	return &m, nil
}

// SaveMemory replaces the memory of m.FriendID and stamps its update time.
func (s *EntityStore) SaveMemory(ctx context.Context, m domain.Memory) (*domain.Memory, error) {
	if strings.TrimSpace(m.FriendID) == "" {
		return nil, fmt.Errorf("memory requires a friend id: %w", ErrInvalidInput)
	}
	return s.mutateMemory(ctx, m.FriendID, func(cur *domain.Memory) {
		*cur = m
	})
}

// AppendMemoryEntry adds a diary or core-memory entry for friendID.
func (s *EntityStore) AppendMemoryEntry(ctx context.Context, friendID, kind, text string) (*domain.Memory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("memory entry must not be empty: %w", ErrInvalidInput)
	}
	if kind != MemoryDiary && kind != MemoryCore {
		return nil, fmt.Errorf("memory kind %q: %w", kind, ErrInvalidFormat)
	}
	return s.mutateMemory(ctx, friendID, func(cur *domain.Memory) {
		if kind == MemoryDiary {
			cur.Diary = append(cur.Diary, text)
		} else {
			cur.CoreMemory = append(cur.CoreMemory, text)
		}
	})
}

// DeleteMemory removes the memory of friendID. Deleting an absent memory
// succeeds.
func (s *EntityStore) DeleteMemory(ctx context.Context, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.loadMemories(ctx)
	if err != nil {
		return err
	}
	if _, ok := memories[friendID]; !ok {
		return nil
	}
	delete(memories, friendID)
	return commit(ctx, s.KV, repo.Put(keyMemories, memories))
}

func (s *EntityStore) mutateMemory(ctx context.Context, friendID string, fn func(*domain.Memory)) (*domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.loadMemories(ctx)
	if err != nil {
		return nil, err
	}
	m := memories[friendID]
	fn(&m)
	m.FriendID = friendID
	if m.Diary == nil {
		m.Diary = []string{}
	}
	if m.CoreMemory == nil {
		m.CoreMemory = []string{}
	}
	m.LastUpdate = s.now()
	memories[friendID] = m
	if err := commit(ctx, s.KV, repo.Put(keyMemories, memories)); err != nil {
		return nil, err
	}
	return &m, nil
}
