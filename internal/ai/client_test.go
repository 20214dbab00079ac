package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func TestComplete_Success(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi!"}}],
			"usage":{"prompt_tokens":7,"completion_tokens":2}}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	res := c.Complete(context.Background(), Request{
		Config:   domain.APIConfig{Endpoint: srv.URL + "/v1/", APIKey: "sk-test", Model: "m", MaxTokens: 32, Temperature: 0.3},
		Messages: []Message{{Role: RoleSystem, Content: "be nice"}, {Role: RoleUser, Content: "hello"}},
	})

	require.True(t, res.Success, res.Error)
	require.Equal(t, "hi!", res.Text)
	require.Equal(t, &domain.Usage{Input: 7, Output: 2, Total: 9}, res.Tokens)
	require.Equal(t, "m", got.Model)
	require.Equal(t, 32, got.MaxTokens)
	require.Len(t, got.Messages, 2)
}

func TestComplete_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer bad":
			http.Error(w, "invalid key", http.StatusUnauthorized)
		case "Bearer empty":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		}
	}))
	defer srv.Close()

	c := &Client{}
	cases := map[string]string{
		"bad":   "provider returned 401: invalid key",
		"empty": "provider returned no choices",
		"other": "quota exceeded",
	}
	for key, want := range cases {
		res := c.Complete(context.Background(), Request{Config: domain.APIConfig{Endpoint: srv.URL, APIKey: key}})
		require.False(t, res.Success)
		require.Equal(t, want, res.Error)
		require.Nil(t, res.Tokens)
	}

	res := c.Complete(context.Background(), Request{})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "no API endpoint")
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := NewClient(20*time.Millisecond).Complete(context.Background(), Request{Config: domain.APIConfig{Endpoint: srv.URL}})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "deadline exceeded")
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"zeta"},{"id":""},{"id":"alpha"}]}`))
	}))
	defer srv.Close()

	ids, err := NewClient(0).ListModels(context.Background(), domain.APIConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, ids)

	_, err = NewClient(0).ListModels(context.Background(), domain.APIConfig{})
	require.Error(t, err)
}
