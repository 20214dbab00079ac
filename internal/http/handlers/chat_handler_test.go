package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/services"
)

func TestSend_AppliesReplyAndUsage(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "CHAT01")

	w := e.do(t, http.MethodPost, "/friends/"+id+"/send", SendRequest{Text: "hi"})
	expectStatus(t, w, http.StatusOK)
	res := decode[services.SendResult](t, w)
	if res.Reply.Text != "hello there" || res.Reply.Type != domain.MessageAI {
		t.Fatalf("reply=%+v", res.Reply)
	}
	if res.Stats.Input != 12 || res.Stats.Output != 4 || res.Stats.Total != 16 {
		t.Fatalf("stats=%+v", res.Stats)
	}

	w = e.do(t, http.MethodGet, "/friends/"+id+"/chat", nil)
	expectStatus(t, w, http.StatusOK)
	chat := decode[domain.Chat](t, w)
	if len(chat.Messages) != 2 || chat.LastMessage != "hello there" {
		t.Fatalf("chat=%+v", chat)
	}

	w = e.do(t, http.MethodGet, "/friends/"+id+"/stats", nil)
	expectStatus(t, w, http.StatusOK)
	if s := decode[domain.TokenStats](t, w); s.Total != 16 {
		t.Fatalf("stats total=%d", s.Total)
	}
}

func TestSend_Errors(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "CHAT02")

	expectError(t, e.do(t, http.MethodPost, "/friends/"+id+"/send", SendRequest{Text: "   "}), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPost, "/friends/friend_NOPE00/send", SendRequest{Text: "hi"}), http.StatusNotFound, ErrCodeNotFound)

	e.ai.fail = "upstream 500"
	expectError(t, e.do(t, http.MethodPost, "/friends/"+id+"/send", SendRequest{Text: "hi"}), http.StatusBadGateway, ErrCodeProviderFailed)

	// the user message is kept, no usage applied
	w := e.do(t, http.MethodGet, "/friends/"+id+"/stats", nil)
	expectStatus(t, w, http.StatusOK)
	if s := decode[domain.TokenStats](t, w); s.Total != 0 {
		t.Fatalf("usage applied on failure: %+v", s)
	}
	w = e.do(t, http.MethodGet, "/friends/"+id+"/messages", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ListMessagesResponse](t, w).Messages; len(got) != 1 || got[0].Type != domain.MessageUser {
		t.Fatalf("messages=%+v", got)
	}
}

func TestAbandonExchange_NothingPending(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodDelete, "/friends/friend_ANY000/exchange", nil)
	expectStatus(t, w, http.StatusOK)
	if decode[AbandonResponse](t, w).Abandoned {
		t.Fatalf("nothing was pending")
	}
}

func TestListMessages_Pagination(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "PAGE01")

	w := e.do(t, http.MethodGet, "/friends/"+id+"/messages", nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[ListMessagesResponse](t, w); len(resp.Messages) != 0 || resp.Pagination.Total != 0 {
		t.Fatalf("expected empty transcript: %+v", resp)
	}

	msgs := make([]domain.Message, 5)
	for i := range msgs {
		msgs[i] = domain.Message{Type: domain.MessageUser, Text: fmt.Sprintf("m%d", i)}
	}
	expectStatus(t, e.do(t, http.MethodPut, "/friends/"+id+"/chat", domain.Chat{Messages: msgs}), http.StatusNoContent)

	cases := []struct {
		query    string
		texts    []string
		page     int
		hasNext  bool
		pageSize int
	}{
		{"?page=1&page_size=2", []string{"m0", "m1"}, 1, true, 2},
		{"?page=3&page_size=2", []string{"m4"}, 3, false, 2},
		{"?page=9&page_size=2", nil, 9, false, 2},
		{"?page=-1&page_size=0", []string{"m0"}, 1, true, 1},
	}
	for _, tc := range cases {
		w := e.do(t, http.MethodGet, "/friends/"+id+"/messages"+tc.query, nil)
		expectStatus(t, w, http.StatusOK)
		resp := decode[ListMessagesResponse](t, w)
		if len(resp.Messages) != len(tc.texts) {
			t.Fatalf("%s: got %d messages", tc.query, len(resp.Messages))
		}
		for i, m := range resp.Messages {
			if m.Text != tc.texts[i] {
				t.Fatalf("%s: message %d = %q", tc.query, i, m.Text)
			}
		}
		p := resp.Pagination
		if p.Page != tc.page || p.PageSize != tc.pageSize || p.HasNext != tc.hasNext || p.Total != 5 {
			t.Fatalf("%s: pagination=%+v", tc.query, p)
		}
	}

	expectError(t, e.do(t, http.MethodGet, "/friends/friend_NOPE00/messages", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestStats_ApplyAndReset(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "STAT01")

	u := domain.Usage{Input: 10, Output: 5, Total: 15}
	expectStatus(t, e.do(t, http.MethodPost, "/friends/"+id+"/stats/usage", u), http.StatusOK)
	w := e.do(t, http.MethodPost, "/friends/"+id+"/stats/usage", u)
	expectStatus(t, w, http.StatusOK)
	if s := decode[domain.TokenStats](t, w); s.Input != 20 || s.Output != 10 || s.Total != 30 {
		t.Fatalf("additive apply broken: %+v", s)
	}

	expectError(t, e.do(t, http.MethodPost, "/friends/"+id+"/stats/usage", domain.Usage{Input: -1}), http.StatusBadRequest, ErrCodeBadRequest)

	w = e.do(t, http.MethodDelete, "/friends/"+id+"/stats", nil)
	expectStatus(t, w, http.StatusOK)
	if s := decode[domain.TokenStats](t, w); s.Total != 0 || s.Input != 0 {
		t.Fatalf("reset failed: %+v", s)
	}
}

func TestChat_SaveDelete(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "CHAT03")

	expectError(t, e.do(t, http.MethodGet, "/friends/"+id+"/chat", nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, e.do(t, http.MethodPut, "/friends/friend_NOPE00/chat", domain.Chat{}), http.StatusNotFound, ErrCodeNotFound)
	expectStatus(t, e.do(t, http.MethodPut, "/friends/"+id+"/chat", domain.Chat{LastMessage: "x"}), http.StatusNoContent)
	expectStatus(t, e.do(t, http.MethodDelete, "/friends/"+id+"/chat", nil), http.StatusNoContent)
	expectStatus(t, e.do(t, http.MethodDelete, "/friends/"+id+"/chat", nil), http.StatusNoContent)
}

func TestMemory_Endpoints(t *testing.T) {
	e := newEnv(t)
	id := e.seedFriend(t, "MEMO01")

	expectError(t, e.do(t, http.MethodGet, "/friends/"+id+"/memory", nil), http.StatusNotFound, ErrCodeNotFound)

	w := e.do(t, http.MethodPost, "/friends/"+id+"/memory/entries", MemoryEntryRequest{Kind: services.MemoryCore, Text: "likes tea"})
	expectStatus(t, w, http.StatusOK)
	if m := decode[domain.Memory](t, w); len(m.CoreMemory) != 1 || m.FriendID != id {
		t.Fatalf("memory=%+v", m)
	}
	expectError(t, e.do(t, http.MethodPost, "/friends/"+id+"/memory/entries", MemoryEntryRequest{Kind: "dream", Text: "x"}), http.StatusBadRequest, ErrCodeInvalidFormat)

	w = e.do(t, http.MethodPut, "/friends/"+id+"/memory", domain.Memory{Summary: "old friend"})
	expectStatus(t, w, http.StatusOK)
	if m := decode[domain.Memory](t, w); m.Summary != "old friend" || len(m.CoreMemory) != 0 {
		t.Fatalf("replace failed: %+v", m)
	}

	expectStatus(t, e.do(t, http.MethodDelete, "/friends/"+id+"/memory", nil), http.StatusNoContent)
	expectError(t, e.do(t, http.MethodGet, "/friends/"+id+"/memory", nil), http.StatusNotFound, ErrCodeNotFound)
}
