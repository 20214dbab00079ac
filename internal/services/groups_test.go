package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func TestGetAllGroups_DefaultMaterialised(t *testing.T) {
	es := newEntities(t, newKV(t))
	groups, err := es.GetAllGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, domain.DefaultGroupID, groups[0].ID)
	require.Equal(t, domain.DefaultGroupName, groups[0].Name)
	require.True(t, groups[0].IsDefault)
}

func TestAddGroup_OrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	es := newEntities(t, newKV(t))

	a, err := es.AddGroup(ctx, "  Family ")
	require.NoError(t, err)
	require.Equal(t, "Family", a.Name)
	b, err := es.AddGroup(ctx, "Work")
	require.NoError(t, err)
	require.Greater(t, b.Order, a.Order)

	_, err = es.AddGroup(ctx, "Family")
	require.ErrorIs(t, err, ErrDuplicateName)
	_, err = es.AddGroup(ctx, "Default")
	require.ErrorIs(t, err, ErrDuplicateName)
	_, err = es.AddGroup(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidName)

	// Case-sensitive comparison.
	_, err = es.AddGroup(ctx, "family")
	require.NoError(t, err)

	groups, err := es.GetAllGroups(ctx)
	require.NoError(t, err)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	require.Equal(t, []string{"Default", "Family", "Work", "family"}, names)
}

func TestRenameGroup(t *testing.T) {
	ctx := context.Background()
	es := newEntities(t, newKV(t))
	a, err := es.AddGroup(ctx, "A")
	require.NoError(t, err)
	_, err = es.AddGroup(ctx, "B")
	require.NoError(t, err)

	g, err := es.RenameGroup(ctx, a.ID, "A")
	require.NoError(t, err, "renaming to the current name succeeds")
	require.Equal(t, "A", g.Name)

	_, err = es.RenameGroup(ctx, a.ID, "B")
	require.ErrorIs(t, err, ErrDuplicateName)

	g, err = es.RenameGroup(ctx, a.ID, "C")
	require.NoError(t, err)
	require.Equal(t, "C", g.Name)

	_, err = es.RenameGroup(ctx, domain.DefaultGroupID, "Other")
	require.ErrorIs(t, err, ErrProtectedDefault)
	_, err = es.RenameGroup(ctx, "group_missing", "X")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteGroup_ReparentsMembers(t *testing.T) {
	ctx := context.Background()
	es := newEntities(t, newKV(t))
	g, err := es.AddGroup(ctx, "Club")
	require.NoError(t, err)

	members := []string{
		addFriend(t, es, "CLB001", g.ID),
		addFriend(t, es, "CLB002", g.ID),
		addFriend(t, es, "CLB003", g.ID),
	}
	other := addFriend(t, es, "OTH001", "")

	inGroup, err := es.GetFriendsByGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, inGroup, 3)

	require.NoError(t, es.DeleteGroup(ctx, g.ID))

	for _, id := range append(members, other) {
		f, err := es.GetFriend(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.DefaultGroupID, f.Group)
	}
	_, err = es.GetGroup(ctx, g.ID)
	require.ErrorIs(t, err, ErrNotFound)
	groups, err := es.GetAllGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestDeleteGroup_DefaultProtected(t *testing.T) {
	ctx := context.Background()
	es := newEntities(t, newKV(t))
	require.ErrorIs(t, es.DeleteGroup(ctx, domain.DefaultGroupID), ErrProtectedDefault)
	require.ErrorIs(t, es.DeleteGroup(ctx, "group_missing"), ErrNotFound)
}
