// Package domain defines the entities owned by the companion store: friends,
// groups, friend codes, chat transcripts with their token statistics, and
// long-lived memories. These are plain JSON-serializable values; each
// collection is persisted as one record in the key-value store.
package domain

import "time"

// DefaultGroupID is the id of the sentinel group every friend falls back to.
const DefaultGroupID = "default"

// DefaultGroupName is the display name of the default group when it is first
// materialised.
const DefaultGroupName = "Default"

// Message authors.
const (
	MessageUser = "user"
	MessageAI   = "ai"
)

// FriendIDPrefix prefixes a friend code to form the friend id.
const FriendIDPrefix = "friend_"

// FriendID returns the id of the friend attached to code.
func FriendID(code string) string { return FriendIDPrefix + code }

// CodeDeletion marks a FriendCode as soft-deleted. Its presence is the
// deleted state; there is no separate flag that could disagree with it.
type CodeDeletion struct {
	At time.Time `json:"at"`
}

// FriendCode is the durable 6-character handle that outlives individual
// friend attach/detach cycles.
//
// Fields:
//   - Code: 6 characters from [A-Z0-9], unique.
//   - Nickname: nickname given when the code was created.
//   - CreatedAt: creation time.
//   - Deletion: non-nil while the code is soft-deleted.
type FriendCode struct {
	Code      string        `json:"code"`
	Nickname  string        `json:"nickname"`
	CreatedAt time.Time     `json:"createTime"`
	Deletion  *CodeDeletion `json:"deletion,omitempty"`
}

// IsDeleted reports whether the code is currently soft-deleted.
func (c FriendCode) IsDeleted() bool { return c.Deletion != nil }

// Friend is a chat counterpart. Its id is always FriendID(FriendCode).
type Friend struct {
	ID         string    `json:"id"`
	FriendCode string    `json:"friendCode"`
	Avatar     string    `json:"avatar"`
	Nickname   string    `json:"nickname"`
	Remark     string    `json:"remark,omitempty"`
	Realname   string    `json:"realname,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	Persona    string    `json:"persona,omitempty"`
	PokeSuffix string    `json:"pokeSuffix"`
	Group      string    `json:"group"`
	AddSource  string    `json:"addSource"`
	Seq        int64     `json:"seq"` // insertion order
	CreatedAt  time.Time `json:"createTime"`
}

// Group is a user-defined bucket for organizing friends.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createTime"`
}

// GroupList is the persisted shape of the friendGroups record.
type GroupList struct {
	Groups []Group `json:"groups"`
}

// Message is a single utterance in a chat transcript.
type Message struct {
	Type      string    `json:"type"` // MessageUser or MessageAI
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenStats accumulates token usage for one chat.
//
// WorldBook, Persona and ChatHistory describe the prompt composition and are
// written by prompt construction; Input, Output and Total are running sums
// over completed AI exchanges.
type TokenStats struct {
	WorldBook   int64      `json:"worldBook"`
	Persona     int64      `json:"persona"`
	ChatHistory int64      `json:"chatHistory"`
	Input       int64      `json:"input"`
	Output      int64      `json:"output"`
	Total       int64      `json:"total"`
	LastUpdate  *time.Time `json:"lastUpdate,omitempty"`
}

// Chat is the transcript and running statistics for one friend.
type Chat struct {
	FriendID    string     `json:"friendId"`
	Messages    []Message  `json:"messages"`
	TokenStats  TokenStats `json:"tokenStats"`
	LastMessage string     `json:"lastMessage"`
	LastUpdate  time.Time  `json:"lastUpdate"`
}

// Memory is long-lived summarized content about a friend. It survives friend
// deletion unless explicitly purged.
type Memory struct {
	FriendID   string    `json:"friendId"`
	Summary    string    `json:"summary"`
	Diary      []string  `json:"diary"`
	CoreMemory []string  `json:"coreMemory"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Usage is the token usage reported for one AI exchange.
type Usage struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}
