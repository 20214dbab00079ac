// Friend and friend-code HTTP handlers.
//
// This file exposes:
//   - POST   /friends                   (add a friend to an existing code)
//   - GET    /friends                   (list in insertion order, ?group= filter)
//   - GET    /friends/{id}
//   - PATCH  /friends/{id}              (whitelisted profile fields)
//   - DELETE /friends/{id}              (?deleteMemory=true purges memory and code)
//   - POST   /codes/generate            (reserve a fresh random code)
//   - POST   /codes                     (register a specific code)
//   - GET    /codes
//   - GET    /codes/{code}
//   - PUT    /codes/{code}/status       (soft delete / restore)
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/services"
)

// AddFriendResponse returns the id of a newly added friend.
type AddFriendResponse struct {
	ID string `json:"id" example:"friend_AB12CD"`
}

// ListFriendsResponse wraps the friend list.
type ListFriendsResponse struct {
	Friends []domain.Friend `json:"friends"`
}

// GenerateCodeRequest optionally names the reserved code.
type GenerateCodeRequest struct {
	Nickname string `json:"nickname" example:"Aiko"`
}

// AddCodeRequest registers a specific friend code.
type AddCodeRequest struct {
	Code     string `json:"code" binding:"required" example:"AB12CD"`
	Nickname string `json:"nickname" example:"Aiko"`
}

// CodeStatusRequest sets the soft-deleted state of a code.
type CodeStatusRequest struct {
	IsDeleted *bool `json:"isDeleted" binding:"required" example:"true"`
}

// ListCodesResponse wraps the friend code list.
type ListCodesResponse struct {
	Codes []domain.FriendCode `json:"codes"`
}

// AddFriend godoc
// @ID          addFriend
// @Summary     Add a friend
// @Description Attaches a new friend to an existing friend code. A soft-deleted code is reactivated.
// @Tags        Friends
// @Accept      json
// @Produce     json
// @Param       body  body      services.NewFriend  true  "Friend payload (friendCode required)"
// @Success     201   {object}  handlers.AddFriendResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Unknown friend code"
// @Failure     409   {object}  handlers.ErrorResponse  "Friend already exists"
// @Failure     507   {object}  handlers.ErrorResponse  "Storage write failed"
// @Router      /friends [post]
func (h *Handlers) AddFriend(c *gin.Context) {
	var req services.NewFriend
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.FriendCode) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "friendCode is required")
		return
	}
	id, err := h.dir.AddFriend(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, AddFriendResponse{ID: id})
}

// ListFriends godoc
// @ID          listFriends
// @Summary     List friends
// @Description Returns friends in insertion order, optionally restricted to one group.
// @Tags        Friends
// @Produce     json
// @Param       group  query     string  false  "Group id filter"  example(default)
// @Success     200    {object}  handlers.ListFriendsResponse
// @Failure     500    {object}  handlers.ErrorResponse  "Internal error"
// @Router      /friends [get]
func (h *Handlers) ListFriends(c *gin.Context) {
	var (
		friends []domain.Friend
		err     error
	)
	if group := strings.TrimSpace(c.Query("group")); group != "" {
		friends, err = h.dir.GetFriendsByGroup(c.Request.Context(), group)
	} else {
		friends, err = h.dir.ListFriends(c.Request.Context())
	}
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListFriendsResponse{Friends: friends})
}

// GetFriend godoc
// @ID          getFriend
// @Summary     Get a friend
// @Tags        Friends
// @Produce     json
// @Param       id   path      string  true  "Friend id"  example(friend_AB12CD)
// @Success     200  {object}  domain.Friend
// @Failure     404  {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id} [get]
func (h *Handlers) GetFriend(c *gin.Context) {
	f, err := h.dir.GetFriend(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// UpdateFriend godoc
// @ID          updateFriend
// @Summary     Update a friend
// @Description Changes whitelisted profile fields. Omitted fields are left as they are; the friend code cannot change.
// @Tags        Friends
// @Accept      json
// @Produce     json
// @Param       id    path      string                 true  "Friend id"  example(friend_AB12CD)
// @Param       body  body      services.FriendUpdate  true  "Fields to change"
// @Success     200   {object}  domain.Friend
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Friend or group not found"
// @Router      /friends/{id} [patch]
func (h *Handlers) UpdateFriend(c *gin.Context) {
	var req services.FriendUpdate
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.dir.UpdateFriend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// DeleteFriend godoc
// @ID          deleteFriend
// @Summary     Delete a friend
// @Description Removes the friend and its chat. The friend code is soft-deleted, or purged together with the memory when deleteMemory is true.
// @Tags        Friends
// @Param       id            path   string  true   "Friend id"  example(friend_AB12CD)
// @Param       deleteMemory  query  bool    false  "Also purge memory and friend code"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id} [delete]
func (h *Handlers) DeleteFriend(c *gin.Context) {
	purge := false
	if raw := c.Query("deleteMemory"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "deleteMemory must be a boolean")
			return
		}
		purge = v
	}
	if err := h.dir.DeleteFriend(c.Request.Context(), c.Param("id"), purge); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// GenerateFriendCode godoc
// @ID          generateFriendCode
// @Summary     Generate a friend code
// @Description Reserves a random unused 6-character code. The body is optional.
// @Tags        Codes
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.GenerateCodeRequest  false  "Optional nickname"
// @Success     201   {object}  domain.FriendCode
// @Failure     503   {object}  handlers.ErrorResponse  "Code space exhausted"
// @Router      /codes/generate [post]
func (h *Handlers) GenerateFriendCode(c *gin.Context) {
	var req GenerateCodeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	code, err := h.dir.GenerateFriendCode(ctx)
	if err != nil {
		serviceError(c, err)
		return
	}
	fc, err := h.dir.AddFriendCode(ctx, code, req.Nickname)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, fc)
}

// AddFriendCode godoc
// @ID          addFriendCode
// @Summary     Register a friend code
// @Tags        Codes
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.AddCodeRequest  true  "Code payload"
// @Success     201   {object}  domain.FriendCode
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid code"
// @Failure     409   {object}  handlers.ErrorResponse  "Code already exists"
// @Router      /codes [post]
func (h *Handlers) AddFriendCode(c *gin.Context) {
	var req AddCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	fc, err := h.dir.AddFriendCode(c.Request.Context(), req.Code, req.Nickname)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, fc)
}

// ListFriendCodes godoc
// @ID          listFriendCodes
// @Summary     List friend codes
// @Description Returns every code, including soft-deleted ones.
// @Tags        Codes
// @Produce     json
// @Success     200  {object}  handlers.ListCodesResponse
// @Router      /codes [get]
func (h *Handlers) ListFriendCodes(c *gin.Context) {
	codes, err := h.dir.ListFriendCodes(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListCodesResponse{Codes: codes})
}

// GetCodeInfo godoc
// @ID          getCodeInfo
// @Summary     Get a friend code
// @Tags        Codes
// @Produce     json
// @Param       code  path      string  true  "Friend code"  example(AB12CD)
// @Success     200   {object}  domain.FriendCode
// @Failure     404   {object}  handlers.ErrorResponse  "Code not found"
// @Router      /codes/{code} [get]
func (h *Handlers) GetCodeInfo(c *gin.Context) {
	fc, err := h.dir.GetCodeInfo(c.Request.Context(), c.Param("code"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, fc)
}

// UpdateCodeStatus godoc
// @ID          updateCodeStatus
// @Summary     Soft-delete or restore a friend code
// @Tags        Codes
// @Accept      json
// @Produce     json
// @Param       code  path      string                      true  "Friend code"  example(AB12CD)
// @Param       body  body      handlers.CodeStatusRequest  true  "New status"
// @Success     200   {object}  domain.FriendCode
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Code not found"
// @Router      /codes/{code}/status [put]
func (h *Handlers) UpdateCodeStatus(c *gin.Context) {
	var req CodeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	fc, err := h.dir.UpdateCodeStatus(c.Request.Context(), c.Param("code"), *req.IsDeleted)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, fc)
}
