package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// GetAllGroups returns every group ordered by order index. The default group
// is always present.
func (s *EntityStore) GetAllGroups(ctx context.Context) ([]domain.Group, error) {
	gl, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	return gl.Groups, nil
}

// GetGroup returns group id or ErrNotFound.
func (s *EntityStore) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	gl, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	i := findGroup(gl.Groups, id)
	if i < 0 {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	g := gl.Groups[i]
	return &g, nil
}

// AddGroup appends a new non-default group. Names are compared exactly
// (case-sensitive) after trimming.
func (s *EntityStore) AddGroup(ctx context.Context, name string) (*domain.Group, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "AddGroup")
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gl, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	if nameTaken(gl.Groups, name, "") {
		return nil, ErrDuplicateName
	}
	next := 0
	for _, g := range gl.Groups {
		if g.Order >= next {
			next = g.Order + 1
		}
	}
	g := domain.Group{
		ID:        "group_" + uuid.NewString(),
		Name:      name,
		Order:     next,
		CreatedAt: s.now(),
	}
	gl.Groups = append(gl.Groups, g)
	if err := commit(ctx, s.KV, repo.Put(keyGroups, gl)); err != nil {
		return nil, err
	}
	return &g, nil
}

// RenameGroup changes the name of group id. The group itself is excluded
// from the collision check, so renaming to the current name succeeds.
func (s *EntityStore) RenameGroup(ctx context.Context, id, newName string) (*domain.Group, error) {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "RenameGroup")
	defer span.End()

	newName = normalizeName(newName)

	s.mu.Lock()
	defer s.mu.Unlock()

	gl, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	i := findGroup(gl.Groups, id)
	if i < 0 {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	if gl.Groups[i].IsDefault {
		return nil, ErrProtectedDefault
	}
	if newName == "" {
		return nil, ErrInvalidName
	}
	if nameTaken(gl.Groups, newName, id) {
		return nil, ErrDuplicateName
	}
	gl.Groups[i].Name = newName
	if err := commit(ctx, s.KV, repo.Put(keyGroups, gl)); err != nil {
		return nil, err
	}
	g := gl.Groups[i]
	return &g, nil
}

// DeleteGroup removes a non-default group. Its members are moved to the
// default group in the same batch that removes the group record.
func (s *EntityStore) DeleteGroup(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/EntityStore").Start(ctx, "DeleteGroup")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	gl, err := s.loadGroups(ctx)
	if err != nil {
		return err
	}
	i := findGroup(gl.Groups, id)
	if i < 0 {
		return fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	if gl.Groups[i].IsDefault {
		return ErrProtectedDefault
	}
	friends, err := s.loadFriends(ctx)
	if err != nil {
		return err
	}
	for fid, f := range friends {
		if f.Group == id {
			f.Group = domain.DefaultGroupID
			friends[fid] = f
		}
	}
	gl.Groups = append(gl.Groups[:i], gl.Groups[i+1:]...)

	return commit(ctx, s.KV, repo.Put(keyFriends, friends), repo.Put(keyGroups, gl))
}

// loadGroups reads the group list, materialising the default group when the
// record is absent or lacks it, and sorts by order index.
func (s *EntityStore) loadGroups(ctx context.Context) (domain.GroupList, error) {
	var gl domain.GroupList
	if err := load(ctx, s.KV, keyGroups, &gl); err != nil {
		return gl, err
	}
	if findGroup(gl.Groups, domain.DefaultGroupID) < 0 {
		def := domain.Group{
			ID:        domain.DefaultGroupID,
			Name:      domain.DefaultGroupName,
			IsDefault: true,
			Order:     0,
		}
		gl.Groups = append([]domain.Group{def}, gl.Groups...)
	}
	if gl.Groups == nil {
		gl.Groups = []domain.Group{}
	}
	sort.SliceStable(gl.Groups, func(i, j int) bool { return gl.Groups[i].Order < gl.Groups[j].Order })
	return gl, nil
}

func findGroup(groups []domain.Group, id string) int {
	for i, g := range groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func nameTaken(groups []domain.Group, name, exceptID string) bool {
	for _, g := range groups {
		if g.ID != exceptID && g.Name == name {
			return true
		}
	}
	return false
}
