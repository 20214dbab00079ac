package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-companion-store/internal/ai"
	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
	"github.com/tbourn/go-companion-store/internal/services"
)

// fakeAI answers every completion with a canned reply and usage.
type fakeAI struct {
	reply  string
	usage  domain.Usage
	fail   string
	models []string
}

func (f *fakeAI) Complete(_ context.Context, req ai.Request) ai.Result {
	if f.fail != "" {
		return ai.Result{Success: false, Error: f.fail}
	}
	u := f.usage
	return ai.Result{Success: true, Text: f.reply, Tokens: &u}
}

func (f *fakeAI) ListModels(_ context.Context, cfg domain.APIConfig) ([]string, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint required")
	}
	return f.models, nil
}

type testEnv struct {
	r  *gin.Engine
	ai *fakeAI
	es *services.EntityStore
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	kv := repo.NewSQLStore(db, repo.DefaultPrefix)

	fake := &fakeAI{reply: "hello there", usage: domain.Usage{Input: 12, Output: 4, Total: 16}, models: []string{"m-a", "m-b"}}
	es := services.NewEntityStore(kv)
	cs := services.NewConfigStore(kv, domain.APIConfig{Provider: "openai", Endpoint: "http://llm.local/v1", Model: "m-a", MaxTokens: 256, Temperature: 0.5})
	acc := services.NewSessionAccounting(es)
	chat := services.NewChatService(es, acc, cs, fake)

	h := New(Deps{
		Directory:  es,
		Accounting: acc,
		Exchanger:  chat,
		Settings:   cs,
		Transfer:   services.NewImportExportCodec(es, cs),
		Models:     fake,
	})

	r := gin.New()
	r.POST("/friends", h.AddFriend)
	r.GET("/friends", h.ListFriends)
	r.GET("/friends/:id", h.GetFriend)
	r.PATCH("/friends/:id", h.UpdateFriend)
	r.DELETE("/friends/:id", h.DeleteFriend)
	r.GET("/friends/:id/chat", h.GetChat)
	r.PUT("/friends/:id/chat", h.SaveChat)
	r.DELETE("/friends/:id/chat", h.DeleteChat)
	r.GET("/friends/:id/messages", h.ListMessages)
	r.POST("/friends/:id/send", h.Send)
	r.DELETE("/friends/:id/exchange", h.AbandonExchange)
	r.GET("/friends/:id/stats", h.GetStats)
	r.POST("/friends/:id/stats/usage", h.ApplyUsage)
	r.DELETE("/friends/:id/stats", h.ResetStats)
	r.GET("/friends/:id/memory", h.GetMemory)
	r.PUT("/friends/:id/memory", h.SaveMemory)
	r.POST("/friends/:id/memory/entries", h.AppendMemoryEntry)
	r.DELETE("/friends/:id/memory", h.DeleteMemory)
	r.POST("/codes/generate", h.GenerateFriendCode)
	r.POST("/codes", h.AddFriendCode)
	r.GET("/codes", h.ListFriendCodes)
	r.GET("/codes/:code", h.GetCodeInfo)
	r.PUT("/codes/:code/status", h.UpdateCodeStatus)
	r.GET("/groups", h.ListGroups)
	r.POST("/groups", h.AddGroup)
	r.GET("/groups/:id/friends", h.ListGroupFriends)
	r.PUT("/groups/:id", h.RenameGroup)
	r.DELETE("/groups/:id", h.DeleteGroup)
	r.GET("/config/api", h.GetAPIConfig)
	r.PATCH("/config/api", h.UpdateAPIConfig)
	r.POST("/config/api/models", h.ListModels)
	r.GET("/config/voice", h.GetVoiceConfig)
	r.PUT("/config/voice", h.SaveVoiceConfig)
	r.GET("/config/user", h.GetUserSettings)
	r.PUT("/config/user", h.SaveUserSettings)
	r.GET("/presets", h.ListPresets)
	r.POST("/presets", h.SavePreset)
	r.PATCH("/presets/:id", h.UpdatePreset)
	r.DELETE("/presets/:id", h.DeletePreset)
	r.POST("/presets/:id/load", h.LoadPreset)
	r.GET("/export", h.Export)
	r.GET("/export/partial", h.ExportPartial)
	r.POST("/import", h.Import)

	return &testEnv{r: r, ai: fake, es: es}
}

// do performs a request with an optional JSON body (string or value).
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if er := decode[ErrorResponse](t, w); er.Code != code {
		t.Fatalf("code=%q want %q (%s)", er.Code, code, er.Message)
	}
}

// seedFriend registers code and adds a friend for it over HTTP.
func (e *testEnv) seedFriend(t *testing.T, code string) string {
	t.Helper()
	expectStatus(t, e.do(t, http.MethodPost, "/codes", AddCodeRequest{Code: code, Nickname: "n-" + code}), http.StatusCreated)
	w := e.do(t, http.MethodPost, "/friends", services.NewFriend{FriendCode: code, Nickname: "Nick " + code, Persona: "cheerful"})
	expectStatus(t, w, http.StatusCreated)
	return decode[AddFriendResponse](t, w).ID
}
