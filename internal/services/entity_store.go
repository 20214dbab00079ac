// Package services – EntityStore
//
// EntityStore owns the friends, groups, friend codes, chats and memories
// collections. Each collection is one record in the key-value store; every
// mutation reads the records it needs, applies the change in memory, and
// writes all touched records back in a single atomic batch, so no observer
// ever sees a friend pointing at a missing group or code.
//
// Mutations are serialized by one mutex, which plays the role of the single
// UI event loop the store was designed around.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
	"github.com/tbourn/go-companion-store/internal/sysutil"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// DefaultMaxCodeAttempts bounds GenerateFriendCode.
	DefaultMaxCodeAttempts = 100

	defaultAddSource = "code"
)

// EntityStore provides CRUD over the entity collections with their
// referential rules.
type EntityStore struct {
	// KV is the persistent key space.
	KV repo.KeyValueStore
	// MaxCodeAttempts caps GenerateFriendCode retries.
	MaxCodeAttempts int

	mu       sync.Mutex
	now      func() time.Time
	randCode func() (string, error)
}

// NewEntityStore constructs an EntityStore over kv.
func NewEntityStore(kv repo.KeyValueStore) *EntityStore {
	return &EntityStore{
		KV:              kv,
		MaxCodeAttempts: DefaultMaxCodeAttempts,
		now:             utcNow,
		randCode:        randomCode,
	}
}

// NewFriend carries the fields accepted by AddFriend. Only FriendCode is
// required; empty optional fields receive defaults.
type NewFriend struct {
	FriendCode string `json:"friendCode"`
	Avatar     string `json:"avatar"`
	Nickname   string `json:"nickname"`
	Remark     string `json:"remark"`
	Realname   string `json:"realname"`
	Signature  string `json:"signature"`
	Persona    string `json:"persona"`
	PokeSuffix string `json:"pokeSuffix"`
	Group      string `json:"group"`
	AddSource  string `json:"addSource"`
}

// FriendUpdate lists the fields UpdateFriend may change. Nil fields are left
// as they are. The friend code is deliberately absent: it is immutable once
// a friend exists for it.
type FriendUpdate struct {
	Avatar     *string `json:"avatar"`
	Nickname   *string `json:"nickname"`
	Remark     *string `json:"remark"`
	Realname   *string `json:"realname"`
	Signature  *string `json:"signature"`
	Persona    *string `json:"persona"`
	PokeSuffix *string `json:"pokeSuffix"`
	Group      *string `json:"group"`
}

//
// Friends
//

// AddFriend attaches a new friend to an existing friend code and returns its
// id. The code must exist (ErrNotFound) and must not already carry a live
// friend (ErrDuplicateFriend). A soft-deleted code is reactivated.
func (s *EntityStore) AddFriend(ctx context.Context, in NewFriend) (string, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "AddFriend")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToUpper(strings.TrimSpace(in.FriendCode))
	codes, err := s.loadCodes(ctx)
	if err != nil {
		return "", err
	}
	fc, ok := codes[code]
	if !ok {
		return "", fmt.Errorf("friend code %q: %w", code, ErrNotFound)
	}
	friends, err := s.loadFriends(ctx)
	if err != nil {
		return "", err
	}
	id := domain.FriendID(code)
	if _, exists := friends[id]; exists {
		return "", ErrDuplicateFriend
	}

	group := strings.TrimSpace(in.Group)
	if group == "" {
		group = domain.DefaultGroupID
	}
	groups, err := s.loadGroups(ctx)
	if err != nil {
		return "", err
	}
	if findGroup(groups.Groups, group) < 0 {
		return "", fmt.Errorf("group %q: %w", group, ErrNotFound)
	}

	var seq int64
	for _, f := range friends {
		if f.Seq > seq {
			seq = f.Seq
		}
	}

	f := domain.Friend{
		ID:         id,
		FriendCode: code,
		Avatar:     in.Avatar,
		Nickname:   sysutil.FirstNonEmpty(in.Nickname, fc.Nickname, code),
		Remark:     in.Remark,
		Realname:   in.Realname,
		Signature:  in.Signature,
		Persona:    in.Persona,
		PokeSuffix: in.PokeSuffix,
		Group:      group,
		AddSource:  sysutil.FirstNonEmpty(in.AddSource, defaultAddSource),
		Seq:        seq + 1,
		CreatedAt:  s.now(),
	}
	friends[id] = f
	fc.Deletion = nil
	codes[code] = fc

	if err := commit(ctx, s.KV, repo.Put(keyFriends, friends), repo.Put(keyFriendCodes, codes)); err != nil {
		return "", err
	}
	return id, nil
}

// GetFriend returns the friend with id or ErrNotFound.
func (s *EntityStore) GetFriend(ctx context.Context, id string) (*domain.Friend, error) {
	friends, err := s.loadFriends(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := friends[id]
	if !ok {
		return nil, fmt.Errorf("friend %q: %w", id, ErrNotFound)
	}
	return &f, nil
}

// ListFriends returns every friend in insertion order.
func (s *EntityStore) ListFriends(ctx context.Context) ([]domain.Friend, error) {
	friends, err := s.loadFriends(ctx)
	if err != nil {
		return nil, err
	}
	return sortedFriends(friends), nil
}

// GetFriendsByGroup returns the friends of groupID in insertion order.
func (s *EntityStore) GetFriendsByGroup(ctx context.Context, groupID string) ([]domain.Friend, error) {
	all, err := s.ListFriends(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Friend, 0, len(all))
	for _, f := range all {
		if f.Group == groupID {
			out = append(out, f)
		}
	}
	return out, nil
}

// UpdateFriend applies the non-nil fields of upd to friend id.
func (s *EntityStore) UpdateFriend(ctx context.Context, id string, upd FriendUpdate) (*domain.Friend, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "UpdateFriend",
		trace.WithAttributes(attribute.String("friend.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	friends, err := s.loadFriends(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := friends[id]
	if !ok {
		return nil, fmt.Errorf("friend %q: %w", id, ErrNotFound)
	}

	if upd.Group != nil {
		g := strings.TrimSpace(*upd.Group)
		if g == "" {
			g = domain.DefaultGroupID
		}
		groups, err := s.loadGroups(ctx)
		if err != nil {
			return nil, err
		}
		if findGroup(groups.Groups, g) < 0 {
			return nil, fmt.Errorf("group %q: %w", g, ErrNotFound)
		}
		f.Group = g
	}
	setIf(&f.Avatar, upd.Avatar)
	setIf(&f.Nickname, upd.Nickname)
	setIf(&f.Remark, upd.Remark)
	setIf(&f.Realname, upd.Realname)
	setIf(&f.Signature, upd.Signature)
	setIf(&f.Persona, upd.Persona)
	setIf(&f.PokeSuffix, upd.PokeSuffix)

	friends[id] = f
	if err := commit(ctx, s.KV, repo.Put(keyFriends, friends)); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFriend removes friend id together with its chat.
//
// With deleteMemory=false the memory is kept and the friend code is
// soft-deleted, so re-adding the same code later restores continuity. With
// deleteMemory=true the memory and the friend code record are purged.
func (s *EntityStore) DeleteFriend(ctx context.Context, id string, deleteMemory bool) error {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "DeleteFriend",
		trace.WithAttributes(attribute.String("friend.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	friends, err := s.loadFriends(ctx)
	if err != nil {
		return err
	}
	f, ok := friends[id]
	if !ok {
		return fmt.Errorf("friend %q: %w", id, ErrNotFound)
	}
	chats, err := s.loadChats(ctx)
	if err != nil {
		return err
	}
	codes, err := s.loadCodes(ctx)
	if err != nil {
		return err
	}

	delete(friends, id)
	delete(chats, id)
	writes := []repo.Write{repo.Put(keyFriends, friends), repo.Put(keyChats, chats)}

	if deleteMemory {
		memories, err := s.loadMemories(ctx)
		if err != nil {
			return err
		}
		delete(memories, id)
		delete(codes, f.FriendCode)
		writes = append(writes, repo.Put(keyMemories, memories))
	} else if fc, ok := codes[f.FriendCode]; ok {
		fc.Deletion = &domain.CodeDeletion{At: s.now()}
		codes[f.FriendCode] = fc
	}
	writes = append(writes, repo.Put(keyFriendCodes, codes))

	return commit(ctx, s.KV, writes...)
}

//
// Friend codes
//

// GenerateFriendCode returns a random code that collides with no stored
// code. It gives up with ErrCodeSpaceExhausted after MaxCodeAttempts draws.
// The code is not reserved; callers register it with AddFriendCode.
func (s *EntityStore) GenerateFriendCode(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "GenerateFriendCode")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.loadCodes(ctx)
	if err != nil {
		return "", err
	}
	attempts := s.MaxCodeAttempts
	if attempts <= 0 {
		attempts = DefaultMaxCodeAttempts
	}
	for i := 0; i < attempts; i++ {
		c, err := s.randCode()
		if err != nil {
			return "", err
		}
		if _, taken := codes[c]; !taken {
			return c, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// AddFriendCode registers code with the nickname it was created for.
func (s *EntityStore) AddFriendCode(ctx context.Context, code, nickname string) (*domain.FriendCode, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "AddFriendCode")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidFriendCode(code) {
		return nil, ErrInvalidCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.loadCodes(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := codes[code]; exists {
		return nil, ErrDuplicateCode
	}
	fc := domain.FriendCode{
		Code:      code,
		Nickname:  strings.TrimSpace(nickname),
		CreatedAt: s.now(),
	}
	codes[code] = fc
	if err := commit(ctx, s.KV, repo.Put(keyFriendCodes, codes)); err != nil {
		return nil, err
	}
	return &fc, nil
}

// UpdateCodeStatus moves code into or out of the soft-deleted state. A code
// with a live friend attached cannot be soft-deleted (ErrDuplicateFriend);
// delete the friend instead.
func (s *EntityStore) UpdateCodeStatus(ctx context.Context, code string, isDeleted bool) (*domain.FriendCode, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "UpdateCodeStatus")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.loadCodes(ctx)
	if err != nil {
		return nil, err
	}
	fc, ok := codes[code]
	if !ok {
		return nil, fmt.Errorf("friend code %q: %w", code, ErrNotFound)
	}
	if isDeleted {
		friends, err := s.loadFriends(ctx)
		if err != nil {
			return nil, err
		}
		if _, live := friends[domain.FriendID(code)]; live {
			return nil, fmt.Errorf("friend code %q is attached to a friend: %w", code, ErrDuplicateFriend)
		}
	}
	switch {
	case isDeleted && fc.Deletion == nil:
		fc.Deletion = &domain.CodeDeletion{At: s.now()}
	case !isDeleted:
		fc.Deletion = nil
	}
	codes[code] = fc
	if err := commit(ctx, s.KV, repo.Put(keyFriendCodes, codes)); err != nil {
		return nil, err
	}
	return &fc, nil
}

// GetCodeInfo returns the record for code or ErrNotFound.
func (s *EntityStore) GetCodeInfo(ctx context.Context, code string) (*domain.FriendCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	codes, err := s.loadCodes(ctx)
	if err != nil {
		return nil, err
	}
	fc, ok := codes[code]
	if !ok {
		return nil, fmt.Errorf("friend code %q: %w", code, ErrNotFound)
	}
	return &fc, nil
}

// ListFriendCodes returns every code record ordered by code.
func (s *EntityStore) ListFriendCodes(ctx context.Context) ([]domain.FriendCode, error) {
	codes, err := s.loadCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FriendCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ValidFriendCode reports whether code is 6 characters from [A-Z0-9].
func ValidFriendCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// randomCode draws a uniform code from codeAlphabet.
func randomCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

//
// record loaders
//

func (s *EntityStore) loadFriends(ctx context.Context) (map[string]domain.Friend, error) {
	m := map[string]domain.Friend{}
	if err := load(ctx, s.KV, keyFriends, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]domain.Friend{}
	}
	return m, nil
}

func (s *EntityStore) loadCodes(ctx context.Context) (map[string]domain.FriendCode, error) {
	m := map[string]domain.FriendCode{}
	if err := load(ctx, s.KV, keyFriendCodes, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]domain.FriendCode{}
	}
	return m, nil
}

func (s *EntityStore) loadChats(ctx context.Context) (map[string]domain.Chat, error) {
	m := map[string]domain.Chat{}
	if err := load(ctx, s.KV, keyChats, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]domain.Chat{}
	}
	return m, nil
}

func (s *EntityStore) loadMemories(ctx context.Context) (map[string]domain.Memory, error) {
	m := map[string]domain.Memory{}
	if err := load(ctx, s.KV, keyMemories, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]domain.Memory{}
	}
	return m, nil
}

func sortedFriends(m map[string]domain.Friend) []domain.Friend {
	out := make([]domain.Friend, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
