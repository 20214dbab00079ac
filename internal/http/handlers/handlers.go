// Package handlers exposes the companion store over REST.
//
// Handlers are transport-thin: they bind and validate input, call the store
// services, and translate results and sentinel errors into HTTP responses.
// The services they depend on are expressed as interfaces so handlers can be
// exercised against fakes as well as the real stores.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/http/middleware"
	"github.com/tbourn/go-companion-store/internal/services"
	"github.com/tbourn/go-companion-store/internal/utils"
)

//
// Service contracts (context-aware)
//

// Directory is the entity store surface: friends, friend codes, groups,
// chat transcripts and memories.
type Directory interface {
	AddFriend(ctx context.Context, in services.NewFriend) (string, error)
	GetFriend(ctx context.Context, id string) (*domain.Friend, error)
	ListFriends(ctx context.Context) ([]domain.Friend, error)
	GetFriendsByGroup(ctx context.Context, groupID string) ([]domain.Friend, error)
	UpdateFriend(ctx context.Context, id string, upd services.FriendUpdate) (*domain.Friend, error)
	DeleteFriend(ctx context.Context, id string, deleteMemory bool) error

	GenerateFriendCode(ctx context.Context) (string, error)
	AddFriendCode(ctx context.Context, code, nickname string) (*domain.FriendCode, error)
	UpdateCodeStatus(ctx context.Context, code string, isDeleted bool) (*domain.FriendCode, error)
	GetCodeInfo(ctx context.Context, code string) (*domain.FriendCode, error)
	ListFriendCodes(ctx context.Context) ([]domain.FriendCode, error)

	GetAllGroups(ctx context.Context) ([]domain.Group, error)
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	AddGroup(ctx context.Context, name string) (*domain.Group, error)
	RenameGroup(ctx context.Context, id, newName string) (*domain.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	GetChat(ctx context.Context, friendID string) (*domain.Chat, error)
	SaveChat(ctx context.Context, chat domain.Chat) error
	DeleteChat(ctx context.Context, friendID string) error

	GetMemory(ctx context.Context, friendID string) (*domain.Memory, error)
	SaveMemory(ctx context.Context, m domain.Memory) (*domain.Memory, error)
	AppendMemoryEntry(ctx context.Context, friendID, kind, text string) (*domain.Memory, error)
	DeleteMemory(ctx context.Context, friendID string) error
}

// Accounting reads and adjusts per-chat token statistics.
type Accounting interface {
	ApplyUsage(ctx context.Context, friendID string, usage domain.Usage) (*domain.TokenStats, error)
	ResetStats(ctx context.Context, friendID string) (*domain.TokenStats, error)
	GetStats(ctx context.Context, friendID string) (*domain.TokenStats, error)
}

// Exchanger runs AI exchanges for a chat.
type Exchanger interface {
	Send(ctx context.Context, friendID, text string) (*services.SendResult, error)
	Abandon(friendID string) bool
}

// Settings holds the single-slot configuration records and API presets.
type Settings interface {
	GetCurrentConfig(ctx context.Context) (domain.APIConfig, error)
	UpdateCurrentConfig(ctx context.Context, upd services.APIConfigUpdate) (domain.APIConfig, error)
	ListPresets(ctx context.Context) ([]domain.Preset, error)
	SavePreset(ctx context.Context, name string, cfg domain.APIConfig) (*domain.Preset, error)
	UpdatePreset(ctx context.Context, id string, upd services.PresetUpdate) (*domain.Preset, error)
	DeletePreset(ctx context.Context, id string) error
	LoadPreset(ctx context.Context, id string) (domain.APIConfig, error)
	GetVoiceConfig(ctx context.Context) (domain.VoiceConfig, error)
	SaveVoiceConfig(ctx context.Context, vc domain.VoiceConfig) error
	GetUserSettings(ctx context.Context) (domain.UserSettings, error)
	SaveUserSettings(ctx context.Context, us domain.UserSettings) error
}

// Transfer exports and imports whole-store documents.
type Transfer interface {
	ExportAll(ctx context.Context) (*domain.ExportDocument, error)
	ExportPartial(ctx context.Context, sel domain.ExportSelectors) (*domain.PartialDocument, error)
	ImportDocument(ctx context.Context, data []byte) error
}

// ModelLister fetches the models offered by a provider.
type ModelLister interface {
	ListModels(ctx context.Context, cfg domain.APIConfig) ([]string, error)
}

//
// Handler wiring
//

// Handlers groups every REST endpoint of the store.
type Handlers struct {
	dir      Directory
	acc      Accounting
	chat     Exchanger
	settings Settings
	transfer Transfer
	models   ModelLister
}

// Deps bundles the services Handlers depends on.
type Deps struct {
	Directory  Directory
	Accounting Accounting
	Exchanger  Exchanger
	Settings   Settings
	Transfer   Transfer
	Models     ModelLister
}

// New constructs a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		dir:      d.Directory,
		acc:      d.Accounting,
		chat:     d.Exchanger,
		settings: d.Settings,
		transfer: d.Transfer,
		models:   d.Models,
	}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

//
// Helpers
//

// serviceError translates a service error into a status, a stable code and a
// response. Unknown errors are logged and reported as 500 without detail.
func serviceError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ErrCodeInternal
	switch {
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrDuplicateFriend),
		errors.Is(err, services.ErrDuplicateCode):
		status, code = http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrProtectedDefault):
		status, code = http.StatusConflict, ErrCodeProtectedDefault
	case errors.Is(err, services.ErrExchangeInFlight):
		status, code = http.StatusConflict, ErrCodeExchangeInFlight
	case errors.Is(err, services.ErrStaleExchange):
		status, code = http.StatusConflict, ErrCodeStaleExchange
	case errors.Is(err, services.ErrInvalidFormat):
		status, code = http.StatusBadRequest, ErrCodeInvalidFormat
	case errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidConfig),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmptyMessage):
		status, code = http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrProviderFailed):
		status, code = http.StatusBadGateway, ErrCodeProviderFailed
	case errors.Is(err, services.ErrCodeSpaceExhausted):
		status, code = http.StatusServiceUnavailable, ErrCodeCodeSpaceExhausted
	case errors.Is(err, services.ErrStorageWriteFailed):
		status, code = http.StatusInsufficientStorage, ErrCodeStorageWriteFailed
	}

	msg := err.Error()
	if code == ErrCodeInternal {
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		msg = "internal server error"
	}
	fail(c, status, code, msg)
}

// bindJSON decodes the body into dst or fails the request with 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 500
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginate returns the requested window of items together with its metadata.
func paginate[T any](items []T, page, pageSize int) ([]T, Pagination) {
	start, end, pages := utils.Window(len(items), page, pageSize)
	return items[start:end], Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      len(items),
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
