package domain

import "time"

// ExportVersion tags documents produced by this build.
const ExportVersion = "1.0"

// DocumentTypePartial marks a partial export.
const DocumentTypePartial = "partial"

// ExportDocument is the portable snapshot of the store.
//
// A nil collection means "not present in the document"; importing leaves the
// corresponding stored collection untouched. Full exports always emit every
// collection, using empty lists rather than null.
type ExportDocument struct {
	Version    string    `json:"version"`
	ExportTime time.Time `json:"exportTime"`
	Type       string    `json:"type,omitempty"`

	Friends      []Friend     `json:"friends"`
	FriendGroups []Group      `json:"friendGroups"`
	FriendCodes  []FriendCode `json:"friendCodes"`
	Chats        []Chat       `json:"chats"`
	Memories     []Memory     `json:"memories"`

	UserSettings *UserSettings `json:"userSettings,omitempty"`
	APIConfig    *APIConfig    `json:"apiConfig,omitempty"`
	APIPresets   []Preset      `json:"apiPresets"`
	VoiceConfig  *VoiceConfig  `json:"voiceConfig,omitempty"`
}

// PartialDocument is an export restricted to the requested per-friend
// categories.
type PartialDocument struct {
	Version    string          `json:"version"`
	ExportTime time.Time       `json:"exportTime"`
	Type       string          `json:"type"`
	Selectors  ExportSelectors `json:"selectors"`
	Friends    []PartialFriend `json:"friends"`
}

// PartialFriend is one friend in a partial export. Code is always present;
// every other field appears only when its selector was requested.
type PartialFriend struct {
	Code    string         `json:"code"`
	Profile *FriendProfile `json:"profile,omitempty"`
	Persona *FriendPersona `json:"persona,omitempty"`
	Chat    *Chat          `json:"chat,omitempty"`
	Memory  *Memory        `json:"memory,omitempty"`
}

// FriendProfile is the display subset of a Friend.
type FriendProfile struct {
	Nickname   string `json:"nickname"`
	Avatar     string `json:"avatar"`
	Remark     string `json:"remark,omitempty"`
	Signature  string `json:"signature,omitempty"`
	PokeSuffix string `json:"pokeSuffix"`
}

// FriendPersona is the persona subset of a Friend.
type FriendPersona struct {
	Realname string `json:"realname,omitempty"`
	Persona  string `json:"persona,omitempty"`
}

// ExportSelectors chooses what a partial export carries per friend.
type ExportSelectors struct {
	Friends  bool `json:"friends"`
	Persona  bool `json:"persona"`
	Chats    bool `json:"chats"`
	Memories bool `json:"memories"`
}

// Any reports whether at least one selector is set.
func (s ExportSelectors) Any() bool {
	return s.Friends || s.Persona || s.Chats || s.Memories
}
