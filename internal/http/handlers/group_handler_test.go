package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func TestGroups_Lifecycle(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/groups", nil)
	expectStatus(t, w, http.StatusOK)
	groups := decode[ListGroupsResponse](t, w).Groups
	if len(groups) != 1 || groups[0].ID != domain.DefaultGroupID || !groups[0].IsDefault {
		t.Fatalf("initial groups=%+v", groups)
	}

	w = e.do(t, http.MethodPost, "/groups", GroupNameRequest{Name: "Family"})
	expectStatus(t, w, http.StatusCreated)
	fam := decode[domain.Group](t, w)
	if fam.Name != "Family" || fam.IsDefault || fam.Order < 1 {
		t.Fatalf("created=%+v", fam)
	}

	expectError(t, e.do(t, http.MethodPost, "/groups", GroupNameRequest{Name: "Family"}), http.StatusConflict, ErrCodeConflict)
	expectError(t, e.do(t, http.MethodPost, "/groups", `{}`), http.StatusBadRequest, ErrCodeBadRequest)

	id := e.seedFriend(t, "GRP001")
	expectStatus(t, e.do(t, http.MethodPatch, "/friends/"+id, map[string]string{"group": fam.ID}), http.StatusOK)

	w = e.do(t, http.MethodGet, "/groups/"+fam.ID+"/friends", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ListFriendsResponse](t, w).Friends; len(got) != 1 || got[0].ID != id {
		t.Fatalf("members=%+v", got)
	}

	w = e.do(t, http.MethodPut, "/groups/"+fam.ID, GroupNameRequest{Name: "Kin"})
	expectStatus(t, w, http.StatusOK)
	if g := decode[domain.Group](t, w); g.Name != "Kin" {
		t.Fatalf("renamed=%+v", g)
	}
	expectError(t, e.do(t, http.MethodPut, "/groups/"+domain.DefaultGroupID, GroupNameRequest{Name: "Other"}), http.StatusConflict, ErrCodeProtectedDefault)
	expectError(t, e.do(t, http.MethodDelete, "/groups/"+domain.DefaultGroupID, nil), http.StatusConflict, ErrCodeProtectedDefault)

	expectStatus(t, e.do(t, http.MethodDelete, "/groups/"+fam.ID, nil), http.StatusNoContent)
	expectError(t, e.do(t, http.MethodDelete, "/groups/"+fam.ID, nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, e.do(t, http.MethodGet, "/groups/"+fam.ID+"/friends", nil), http.StatusNotFound, ErrCodeNotFound)

	// members fall back to the default group
	w = e.do(t, http.MethodGet, "/friends/"+id, nil)
	expectStatus(t, w, http.StatusOK)
	if f := decode[domain.Friend](t, w); f.Group != domain.DefaultGroupID {
		t.Fatalf("friend group=%q", f.Group)
	}
}
