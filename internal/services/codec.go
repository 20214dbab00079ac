// Package services – ImportExportCodec
//
// The codec serializes the entity and configuration collections to a
// portable JSON document and back. Imports are validated completely against
// the document and the current state before anything is written, and are
// then applied as one atomic batch: a malformed document changes nothing,
// and collections the document does not mention are left untouched.
//
// Observability: export and import are OpenTelemetry-instrumented.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// ImportExportCodec moves whole-store snapshots in and out. Entities and
// Config must share one key-value store.
type ImportExportCodec struct {
	Entities *EntityStore
	Config   *ConfigStore
}

// NewImportExportCodec constructs a codec over the two stores.
func NewImportExportCodec(es *EntityStore, cs *ConfigStore) *ImportExportCodec {
	return &ImportExportCodec{Entities: es, Config: cs}
}

// lock takes both store locks in a fixed order.
func (c *ImportExportCodec) lock() func() {
	c.Entities.mu.Lock()
	c.Config.mu.Lock()
	return func() {
		c.Config.mu.Unlock()
		c.Entities.mu.Unlock()
	}
}

// snapshot reads every collection into a full export document.
type snapshot struct {
	friends  map[string]domain.Friend
	groups   domain.GroupList
	codes    map[string]domain.FriendCode
	chats    map[string]domain.Chat
	memories map[string]domain.Memory
}

func (c *ImportExportCodec) readEntities(ctx context.Context) (*snapshot, error) {
	es := c.Entities
	var (
		sn  snapshot
		err error
	)
	if sn.friends, err = es.loadFriends(ctx); err != nil {
		return nil, err
	}
	if sn.groups, err = es.loadGroups(ctx); err != nil {
		return nil, err
	}
	if sn.codes, err = es.loadCodes(ctx); err != nil {
		return nil, err
	}
	if sn.chats, err = es.loadChats(ctx); err != nil {
		return nil, err
	}
	if sn.memories, err = es.loadMemories(ctx); err != nil {
		return nil, err
	}
	return &sn, nil
}

//
// Export
//

// ExportAll returns a document holding every entity collection plus the
// current API configuration, presets, voice configuration and user settings.
func (c *ImportExportCodec) ExportAll(ctx context.Context) (*domain.ExportDocument, error) {
	ctx, span := otel.Tracer("services/ImportExportCodec").Start(ctx, "ExportAll")
	defer span.End()

	unlock := c.lock()
	defer unlock()

	sn, err := c.readEntities(ctx)
	if err != nil {
		return nil, err
	}
	apiCfg, err := c.Config.GetCurrentConfig(ctx)
	if err != nil {
		return nil, err
	}
	presets, err := c.Config.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	voice, err := c.Config.GetVoiceConfig(ctx)
	if err != nil {
		return nil, err
	}
	user, err := c.Config.GetUserSettings(ctx)
	if err != nil {
		return nil, err
	}

	doc := &domain.ExportDocument{
		Version:      domain.ExportVersion,
		ExportTime:   c.Entities.now(),
		Friends:      sortedFriends(sn.friends),
		FriendGroups: sn.groups.Groups,
		FriendCodes:  sortedCodes(sn.codes),
		Chats:        sortedChats(sn.chats),
		Memories:     sortedMemories(sn.memories),
		UserSettings: &user,
		APIConfig:    &apiCfg,
		APIPresets:   presets,
		VoiceConfig:  &voice,
	}
	span.SetAttributes(
		attribute.Int("export.friends", len(doc.Friends)),
		attribute.Int("export.chats", len(doc.Chats)),
	)
	return doc, nil
}

// ExportPartial returns, per friend, only the categories selected in sel.
// Each entry always carries the friend code.
func (c *ImportExportCodec) ExportPartial(ctx context.Context, sel domain.ExportSelectors) (*domain.PartialDocument, error) {
	if !sel.Any() {
		return nil, fmt.Errorf("select at least one export category: %w", ErrInvalidInput)
	}
	ctx, span := otel.Tracer("services/ImportExportCodec").Start(ctx, "ExportPartial",
		trace.WithAttributes(
			attribute.Bool("sel.friends", sel.Friends),
			attribute.Bool("sel.persona", sel.Persona),
			attribute.Bool("sel.chats", sel.Chats),
			attribute.Bool("sel.memories", sel.Memories),
		),
	)
	defer span.End()

	unlock := c.lock()
	defer unlock()

	sn, err := c.readEntities(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.PartialFriend, 0, len(sn.friends))
	for _, f := range sortedFriends(sn.friends) {
		e := domain.PartialFriend{Code: f.FriendCode}
		if sel.Friends {
			e.Profile = &domain.FriendProfile{
				Nickname:   f.Nickname,
				Avatar:     f.Avatar,
				Remark:     f.Remark,
				Signature:  f.Signature,
				PokeSuffix: f.PokeSuffix,
			}
		}
		if sel.Persona {
			e.Persona = &domain.FriendPersona{Realname: f.Realname, Persona: f.Persona}
		}
		if sel.Chats {
			if ch, ok := sn.chats[f.ID]; ok {
				e.Chat = &ch
			}
		}
		if sel.Memories {
			if m, ok := sn.memories[f.ID]; ok {
				e.Memory = &m
			}
		}
		entries = append(entries, e)
	}
	return &domain.PartialDocument{
		Version:    domain.ExportVersion,
		ExportTime: c.Entities.now(),
		Type:       domain.DocumentTypePartial,
		Selectors:  sel,
		Friends:    entries,
	}, nil
}

//
// Parsing
//

// ParseDocument decodes an untrusted full export. Any structural problem is
// reported as ErrInvalidFormat.
func ParseDocument(data []byte) (*domain.ExportDocument, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}
	if typ == domain.DocumentTypePartial {
		return nil, fmt.Errorf("%w: partial document where a full export was expected", ErrInvalidFormat)
	}
	var doc domain.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &doc, nil
}

// ParsePartialDocument decodes an untrusted partial export.
func ParsePartialDocument(data []byte) (*domain.PartialDocument, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}
	if typ != domain.DocumentTypePartial {
		return nil, fmt.Errorf("%w: not a partial document", ErrInvalidFormat)
	}
	var doc domain.PartialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &doc, nil
}

// peekType checks the top-level shape (a JSON object with a version) and
// returns the document type.
func peekType(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return "", fmt.Errorf("%w: document must be a JSON object", ErrInvalidFormat)
	}
	var head struct {
		Version *string `json:"version"`
		Type    string  `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if head.Version == nil || strings.TrimSpace(*head.Version) == "" {
		return "", fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	return head.Type, nil
}

// ImportDocument parses data and imports it as a full or partial document
// depending on its type tag.
func (c *ImportExportCodec) ImportDocument(ctx context.Context, data []byte) error {
	typ, err := peekType(data)
	if err != nil {
		return err
	}
	if typ == domain.DocumentTypePartial {
		doc, err := ParsePartialDocument(data)
		if err != nil {
			return err
		}
		return c.ImportPartial(ctx, doc)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	return c.ImportAll(ctx, doc)
}

//
// Import
//

// ImportAll replaces every collection present in doc. Absent collections
// are left untouched. The document is validated against the resulting state
// first; on any violation ErrInvalidFormat is returned and nothing changes.
func (c *ImportExportCodec) ImportAll(ctx context.Context, doc *domain.ExportDocument) error {
	if doc == nil || strings.TrimSpace(doc.Version) == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	ctx, span := otel.Tracer("services/ImportExportCodec").Start(ctx, "ImportAll")
	defer span.End()

	unlock := c.lock()
	defer unlock()

	cur, err := c.readEntities(ctx)
	if err != nil {
		return err
	}

	// Resulting state: document collections override stored ones.
	next := *cur
	var writes []repo.Write

	if doc.FriendGroups != nil {
		if err := validateGroups(doc.FriendGroups); err != nil {
			return err
		}
		next.groups = domain.GroupList{Groups: append([]domain.Group{}, doc.FriendGroups...)}
		writes = append(writes, repo.Put(keyGroups, next.groups))
	}
	if doc.FriendCodes != nil {
		codes, err := indexCodes(doc.FriendCodes)
		if err != nil {
			return err
		}
		next.codes = codes
		writes = append(writes, repo.Put(keyFriendCodes, codes))
	}
	if doc.Friends != nil {
		friends, err := indexFriends(doc.Friends)
		if err != nil {
			return err
		}
		// Documents without friendGroups/friendCodes (the minimal backup
		// shape) still carry friends: rehome them and fill in their codes.
		if doc.FriendGroups == nil {
			for id, f := range friends {
				if findGroup(next.groups.Groups, f.Group) < 0 {
					f.Group = domain.DefaultGroupID
					friends[id] = f
				}
			}
		}
		if doc.FriendCodes == nil {
			codes, added, err := attachCodes(next.codes, friends, c.Entities.now())
			if err != nil {
				return err
			}
			if added {
				next.codes = codes
				writes = append(writes, repo.Put(keyFriendCodes, codes))
			}
		}
		next.friends = friends
		writes = append(writes, repo.Put(keyFriends, friends))
	}
	if doc.Chats != nil {
		chats, err := indexChats(doc.Chats)
		if err != nil {
			return err
		}
		next.chats = chats
		writes = append(writes, repo.Put(keyChats, chats))
	}
	if doc.Memories != nil {
		memories, err := indexMemories(doc.Memories)
		if err != nil {
			return err
		}
		next.memories = memories
		writes = append(writes, repo.Put(keyMemories, memories))
	}
	if err := validateReferences(&next); err != nil {
		return err
	}

	if doc.APIConfig != nil {
		if err := validateAPIConfig(*doc.APIConfig); err != nil {
			return fmt.Errorf("%w: apiConfig: %v", ErrInvalidFormat, err)
		}
		writes = append(writes, repo.Put(keyAPIConfig, *doc.APIConfig))
	}
	if doc.APIPresets != nil {
		if err := validatePresets(doc.APIPresets); err != nil {
			return err
		}
		writes = append(writes, repo.Put(keyAPIPresets, doc.APIPresets))
	}
	if doc.VoiceConfig != nil {
		writes = append(writes, repo.Put(keyVoiceConfig, *doc.VoiceConfig))
	}
	if doc.UserSettings != nil {
		writes = append(writes, repo.Put(keyUserSettings, *doc.UserSettings))
	}

	span.SetAttributes(attribute.Int("import.records", len(writes)))
	if len(writes) == 0 {
		return nil
	}
	return commit(ctx, c.Entities.KV, writes...)
}

// ImportPartial merges a partial document friend by friend. Missing friend
// codes and friends are created (friends land in the default group); the
// categories an entry carries overwrite the stored ones.
func (c *ImportExportCodec) ImportPartial(ctx context.Context, doc *domain.PartialDocument) error {
	if doc == nil || strings.TrimSpace(doc.Version) == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	ctx, span := otel.Tracer("services/ImportExportCodec").Start(ctx, "ImportPartial",
		trace.WithAttributes(attribute.Int("import.entries", len(doc.Friends))),
	)
	defer span.End()

	seen := make(map[string]struct{}, len(doc.Friends))
	for _, e := range doc.Friends {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if !ValidFriendCode(code) {
			return fmt.Errorf("%w: friend code %q", ErrInvalidFormat, e.Code)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: duplicate friend code %q", ErrInvalidFormat, code)
		}
		seen[code] = struct{}{}
	}

	unlock := c.lock()
	defer unlock()

	es := c.Entities
	cur, err := c.readEntities(ctx)
	if err != nil {
		return err
	}
	now := es.now()
	var seq int64
	for _, f := range cur.friends {
		if f.Seq > seq {
			seq = f.Seq
		}
	}

	for _, e := range doc.Friends {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		id := domain.FriendID(code)

		nickname := code
		if e.Profile != nil && strings.TrimSpace(e.Profile.Nickname) != "" {
			nickname = e.Profile.Nickname
		}
		fc, ok := cur.codes[code]
		if !ok {
			fc = domain.FriendCode{Code: code, Nickname: nickname, CreatedAt: now}
		}
		fc.Deletion = nil
		cur.codes[code] = fc

		f, ok := cur.friends[id]
		if !ok {
			seq++
			f = domain.Friend{
				ID:         id,
				FriendCode: code,
				Nickname:   nickname,
				Group:      domain.DefaultGroupID,
				AddSource:  "import",
				Seq:        seq,
				CreatedAt:  now,
			}
		}
		if p := e.Profile; p != nil {
			f.Nickname = nickname
			f.Avatar = p.Avatar
			f.Remark = p.Remark
			f.Signature = p.Signature
			f.PokeSuffix = p.PokeSuffix
		}
		if p := e.Persona; p != nil {
			f.Realname = p.Realname
			f.Persona = p.Persona
		}
		cur.friends[id] = f

		if e.Chat != nil {
			ch := *e.Chat
			ch.FriendID = id
			if ch.Messages == nil {
				ch.Messages = []domain.Message{}
			}
			cur.chats[id] = ch
		}
		if e.Memory != nil {
			m := *e.Memory
			m.FriendID = id
			cur.memories[id] = m
		}
	}

	return commit(ctx, es.KV,
		repo.Put(keyFriendCodes, cur.codes),
		repo.Put(keyFriends, cur.friends),
		repo.Put(keyChats, cur.chats),
		repo.Put(keyMemories, cur.memories),
	)
}

//
// validation
//

func validateGroups(groups []domain.Group) error {
	ids := make(map[string]struct{}, len(groups))
	names := make(map[string]struct{}, len(groups))
	defaults := 0
	for _, g := range groups {
		if strings.TrimSpace(g.ID) == "" || strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("%w: group with empty id or name", ErrInvalidFormat)
		}
		if _, dup := ids[g.ID]; dup {
			return fmt.Errorf("%w: duplicate group id %q", ErrInvalidFormat, g.ID)
		}
		if _, dup := names[g.Name]; dup {
			return fmt.Errorf("%w: duplicate group name %q", ErrInvalidFormat, g.Name)
		}
		ids[g.ID] = struct{}{}
		names[g.Name] = struct{}{}
		if g.IsDefault {
			defaults++
			if g.ID != domain.DefaultGroupID {
				return fmt.Errorf("%w: default group must have id %q", ErrInvalidFormat, domain.DefaultGroupID)
			}
		}
	}
	if defaults != 1 {
		return fmt.Errorf("%w: exactly one default group required, found %d", ErrInvalidFormat, defaults)
	}
	return nil
}

func indexCodes(list []domain.FriendCode) (map[string]domain.FriendCode, error) {
	out := make(map[string]domain.FriendCode, len(list))
	for _, fc := range list {
		if !ValidFriendCode(fc.Code) {
			return nil, fmt.Errorf("%w: friend code %q", ErrInvalidFormat, fc.Code)
		}
		if _, dup := out[fc.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate friend code %q", ErrInvalidFormat, fc.Code)
		}
		out[fc.Code] = fc
	}
	return out, nil
}

func indexFriends(list []domain.Friend) (map[string]domain.Friend, error) {
	out := make(map[string]domain.Friend, len(list))
	for _, f := range list {
		if f.ID != domain.FriendID(f.FriendCode) {
			return nil, fmt.Errorf("%w: friend id %q does not match code %q", ErrInvalidFormat, f.ID, f.FriendCode)
		}
		if _, dup := out[f.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate friend %q", ErrInvalidFormat, f.ID)
		}
		out[f.ID] = f
	}
	return out, nil
}

func indexChats(list []domain.Chat) (map[string]domain.Chat, error) {
	out := make(map[string]domain.Chat, len(list))
	for _, ch := range list {
		if strings.TrimSpace(ch.FriendID) == "" {
			return nil, fmt.Errorf("%w: chat without friendId", ErrInvalidFormat)
		}
		if _, dup := out[ch.FriendID]; dup {
			return nil, fmt.Errorf("%w: duplicate chat %q", ErrInvalidFormat, ch.FriendID)
		}
		s := ch.TokenStats
		if s.Input < 0 || s.Output < 0 || s.Total < 0 || s.WorldBook < 0 || s.Persona < 0 || s.ChatHistory < 0 {
			return nil, fmt.Errorf("%w: negative token stats in chat %q", ErrInvalidFormat, ch.FriendID)
		}
		out[ch.FriendID] = ch
	}
	return out, nil
}

func indexMemories(list []domain.Memory) (map[string]domain.Memory, error) {
	out := make(map[string]domain.Memory, len(list))
	for _, m := range list {
		if strings.TrimSpace(m.FriendID) == "" {
			return nil, fmt.Errorf("%w: memory without friendId", ErrInvalidFormat)
		}
		if _, dup := out[m.FriendID]; dup {
			return nil, fmt.Errorf("%w: duplicate memory %q", ErrInvalidFormat, m.FriendID)
		}
		out[m.FriendID] = m
	}
	return out, nil
}

// attachCodes returns a copy of codes in which every friend has a live code
// record: missing records are created and soft-deleted ones are revived.
// changed reports whether anything differs from codes.
func attachCodes(codes map[string]domain.FriendCode, friends map[string]domain.Friend, now time.Time) (out map[string]domain.FriendCode, changed bool, err error) {
	out = make(map[string]domain.FriendCode, len(codes)+len(friends))
	for k, v := range codes {
		out[k] = v
	}
	for _, f := range friends {
		if !ValidFriendCode(f.FriendCode) {
			return nil, false, fmt.Errorf("%w: friend code %q", ErrInvalidFormat, f.FriendCode)
		}
		fc, ok := out[f.FriendCode]
		switch {
		case !ok:
			created := f.CreatedAt
			if created.IsZero() {
				created = now
			}
			nickname := f.Nickname
			if strings.TrimSpace(nickname) == "" {
				nickname = f.FriendCode
			}
			fc = domain.FriendCode{Code: f.FriendCode, Nickname: nickname, CreatedAt: created}
		case fc.IsDeleted():
			fc.Deletion = nil
		default:
			continue
		}
		out[f.FriendCode] = fc
		changed = true
	}
	return out, changed, nil
}

// validateReferences checks the cross-collection rules of the state an
// import would produce.
func validateReferences(sn *snapshot) error {
	for id, f := range sn.friends {
		fc, ok := sn.codes[f.FriendCode]
		if !ok {
			return fmt.Errorf("%w: friend %q references unknown code %q", ErrInvalidFormat, id, f.FriendCode)
		}
		if fc.IsDeleted() {
			return fmt.Errorf("%w: friend %q is attached to soft-deleted code %q", ErrInvalidFormat, id, f.FriendCode)
		}
		if findGroup(sn.groups.Groups, f.Group) < 0 {
			return fmt.Errorf("%w: friend %q references unknown group %q", ErrInvalidFormat, id, f.Group)
		}
	}
	for id := range sn.chats {
		if _, ok := sn.friends[id]; !ok {
			return fmt.Errorf("%w: chat %q has no friend", ErrInvalidFormat, id)
		}
	}
	return nil
}

func validatePresets(list []domain.Preset) error {
	ids := make(map[string]struct{}, len(list))
	names := make(map[string]struct{}, len(list))
	for _, p := range list {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: preset with empty id or name", ErrInvalidFormat)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("%w: duplicate preset id %q", ErrInvalidFormat, p.ID)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("%w: duplicate preset name %q", ErrInvalidFormat, p.Name)
		}
		if err := validateAPIConfig(p.APIConfig); err != nil {
			return fmt.Errorf("%w: preset %q: %v", ErrInvalidFormat, p.Name, err)
		}
		ids[p.ID] = struct{}{}
		names[p.Name] = struct{}{}
	}
	return nil
}

//
// ordering
//

func sortedCodes(m map[string]domain.FriendCode) []domain.FriendCode {
	out := make([]domain.FriendCode, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func sortedChats(m map[string]domain.Chat) []domain.Chat {
	out := make([]domain.Chat, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out
}

func sortedMemories(m map[string]domain.Memory) []domain.Memory {
	out := make([]domain.Memory, 0, len(m))
	for _, mm := range m {
		out = append(out, mm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out
}
