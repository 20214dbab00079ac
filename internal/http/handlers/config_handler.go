// Configuration HTTP handlers.
//
//   - GET    /config/api
//   - PATCH  /config/api
//   - POST   /config/api/models         (model fetch; body overrides endpoint/key)
//   - GET    /presets
//   - POST   /presets                   (snapshot the current config)
//   - PATCH  /presets/{id}
//   - DELETE /presets/{id}
//   - POST   /presets/{id}/load         (make a preset the current config)
//   - GET    /config/voice
//   - PUT    /config/voice
//   - GET    /config/user
//   - PUT    /config/user
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/services"
)

// ModelsRequest optionally overrides the stored endpoint and key, so models
// can be fetched before a configuration is saved.
type ModelsRequest struct {
	Endpoint string `json:"endpoint" example:"https://api.openai.com/v1"`
	APIKey   string `json:"apiKey"`
}

// ModelsResponse lists provider model ids.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// SavePresetRequest names a preset. Config, when given, is stored instead of
// the current configuration.
type SavePresetRequest struct {
	Name   string            `json:"name" binding:"required" example:"Fast model"`
	Config *domain.APIConfig `json:"config"`
}

// ListPresetsResponse wraps the preset list.
type ListPresetsResponse struct {
	Presets []domain.Preset `json:"presets"`
}

// GetAPIConfig godoc
// @ID          getAPIConfig
// @Summary     Get the current API configuration
// @Tags        Config
// @Produce     json
// @Success     200  {object}  domain.APIConfig
// @Router      /config/api [get]
func (h *Handlers) GetAPIConfig(c *gin.Context) {
	cfg, err := h.settings.GetCurrentConfig(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// UpdateAPIConfig godoc
// @ID          updateAPIConfig
// @Summary     Update the current API configuration
// @Description Omitted fields are left as they are. maxTokens must stay positive.
// @Tags        Config
// @Accept      json
// @Produce     json
// @Param       body  body      services.APIConfigUpdate  true  "Fields to change"
// @Success     200   {object}  domain.APIConfig
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid configuration"
// @Router      /config/api [patch]
func (h *Handlers) UpdateAPIConfig(c *gin.Context) {
	var req services.APIConfigUpdate
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.settings.UpdateCurrentConfig(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// ListModels godoc
// @ID          listModels
// @Summary     Fetch provider models
// @Tags        Config
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ModelsRequest  false  "Endpoint and key overrides"
// @Success     200   {object}  handlers.ModelsResponse
// @Failure     502   {object}  handlers.ErrorResponse  "Provider failed"
// @Router      /config/api/models [post]
func (h *Handlers) ListModels(c *gin.Context) {
	var req ModelsRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	cfg, err := h.settings.GetCurrentConfig(ctx)
	if err != nil {
		serviceError(c, err)
		return
	}
	if ep := strings.TrimSpace(req.Endpoint); ep != "" {
		cfg.Endpoint = ep
	}
	if key := strings.TrimSpace(req.APIKey); key != "" {
		cfg.APIKey = key
	}
	models, err := h.models.ListModels(ctx, cfg)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeProviderFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ModelsResponse{Models: models})
}

// ListPresets godoc
// @ID          listPresets
// @Summary     List API presets
// @Tags        Presets
// @Produce     json
// @Success     200  {object}  handlers.ListPresetsResponse
// @Router      /presets [get]
func (h *Handlers) ListPresets(c *gin.Context) {
	list, err := h.settings.ListPresets(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListPresetsResponse{Presets: list})
}

// SavePreset godoc
// @ID          savePreset
// @Summary     Save an API preset
// @Description Snapshots the current configuration (or the given one) under a unique name.
// @Tags        Presets
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SavePresetRequest  true  "Preset"
// @Success     201   {object}  domain.Preset
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse  "Name already in use"
// @Router      /presets [post]
func (h *Handlers) SavePreset(c *gin.Context) {
	var req SavePresetRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var cfg domain.APIConfig
	if req.Config != nil {
		cfg = *req.Config
	} else {
		cur, err := h.settings.GetCurrentConfig(ctx)
		if err != nil {
			serviceError(c, err)
			return
		}
		cfg = cur
	}
	p, err := h.settings.SavePreset(ctx, req.Name, cfg)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// UpdatePreset godoc
// @ID          updatePreset
// @Summary     Update an API preset
// @Tags        Presets
// @Accept      json
// @Produce     json
// @Param       id    path      string                 true  "Preset id"
// @Param       body  body      services.PresetUpdate  true  "Fields to change"
// @Success     200   {object}  domain.Preset
// @Failure     404   {object}  handlers.ErrorResponse  "Preset not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Name already in use"
// @Router      /presets/{id} [patch]
func (h *Handlers) UpdatePreset(c *gin.Context) {
	var req services.PresetUpdate
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.settings.UpdatePreset(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePreset godoc
// @ID          deletePreset
// @Summary     Delete an API preset
// @Tags        Presets
// @Param       id   path  string  true  "Preset id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Preset not found"
// @Router      /presets/{id} [delete]
func (h *Handlers) DeletePreset(c *gin.Context) {
	if err := h.settings.DeletePreset(c.Request.Context(), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// LoadPreset godoc
// @ID          loadPreset
// @Summary     Load an API preset
// @Description Replaces the current configuration with the preset's.
// @Tags        Presets
// @Produce     json
// @Param       id   path      string  true  "Preset id"
// @Success     200  {object}  domain.APIConfig
// @Failure     404  {object}  handlers.ErrorResponse  "Preset not found"
// @Router      /presets/{id}/load [post]
func (h *Handlers) LoadPreset(c *gin.Context) {
	cfg, err := h.settings.LoadPreset(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// GetVoiceConfig godoc
// @ID          getVoiceConfig
// @Summary     Get the voice configuration
// @Tags        Config
// @Produce     json
// @Success     200  {object}  domain.VoiceConfig
// @Router      /config/voice [get]
func (h *Handlers) GetVoiceConfig(c *gin.Context) {
	vc, err := h.settings.GetVoiceConfig(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, vc)
}

// SaveVoiceConfig godoc
// @ID          saveVoiceConfig
// @Summary     Replace the voice configuration
// @Tags        Config
// @Accept      json
// @Produce     json
// @Param       body  body      domain.VoiceConfig  true  "Voice configuration"
// @Success     200   {object}  domain.VoiceConfig
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid configuration"
// @Router      /config/voice [put]
func (h *Handlers) SaveVoiceConfig(c *gin.Context) {
	var vc domain.VoiceConfig
	if !bindJSON(c, &vc) {
		return
	}
	if err := h.settings.SaveVoiceConfig(c.Request.Context(), vc); err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, vc)
}

// GetUserSettings godoc
// @ID          getUserSettings
// @Summary     Get the owner's profile settings
// @Tags        Config
// @Produce     json
// @Success     200  {object}  domain.UserSettings
// @Router      /config/user [get]
func (h *Handlers) GetUserSettings(c *gin.Context) {
	us, err := h.settings.GetUserSettings(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, us)
}

// SaveUserSettings godoc
// @ID          saveUserSettings
// @Summary     Replace the owner's profile settings
// @Tags        Config
// @Accept      json
// @Produce     json
// @Param       body  body      domain.UserSettings  true  "Settings"
// @Success     200   {object}  domain.UserSettings
// @Router      /config/user [put]
func (h *Handlers) SaveUserSettings(c *gin.Context) {
	var us domain.UserSettings
	if !bindJSON(c, &us) {
		return
	}
	if err := h.settings.SaveUserSettings(c.Request.Context(), us); err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, us)
}
