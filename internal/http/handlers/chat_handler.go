// Chat, memory and token-statistics HTTP handlers.
//
// This file exposes the per-friend resources:
//   - GET    /friends/{id}/chat              (transcript + stats)
//   - PUT    /friends/{id}/chat              (replace transcript)
//   - DELETE /friends/{id}/chat
//   - GET    /friends/{id}/messages          (paginated)
//   - POST   /friends/{id}/send              (run one AI exchange)
//   - DELETE /friends/{id}/exchange          (abandon the pending exchange)
//   - GET    /friends/{id}/stats
//   - POST   /friends/{id}/stats/usage       (apply externally reported usage)
//   - DELETE /friends/{id}/stats             (reset)
//   - GET    /friends/{id}/memory
//   - PUT    /friends/{id}/memory
//   - POST   /friends/{id}/memory/entries    (append diary or core entry)
//   - DELETE /friends/{id}/memory
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/services"
)

// SendRequest is the user turn of an AI exchange.
type SendRequest struct {
	Text string `json:"text" binding:"required" example:"How was your day?"`
}

// AbandonResponse reports whether an exchange was pending.
type AbandonResponse struct {
	Abandoned bool `json:"abandoned"`
}

// ListMessagesResponse wraps a page of chat messages.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// MemoryEntryRequest appends one entry to a memory.
type MemoryEntryRequest struct {
	// Kind is "diary" or "core".
	Kind string `json:"kind" binding:"required" example:"core"`
	Text string `json:"text" binding:"required" example:"Prefers green tea"`
}

// GetChat godoc
// @ID          getChat
// @Summary     Get the chat of a friend
// @Tags        Chats
// @Produce     json
// @Param       id   path      string  true  "Friend id"  example(friend_AB12CD)
// @Success     200  {object}  domain.Chat
// @Failure     404  {object}  handlers.ErrorResponse  "No chat yet"
// @Router      /friends/{id}/chat [get]
func (h *Handlers) GetChat(c *gin.Context) {
	chat, err := h.dir.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}

// SaveChat godoc
// @ID          saveChat
// @Summary     Replace the chat of a friend
// @Description Stores the transcript and statistics as given. The friend must exist.
// @Tags        Chats
// @Accept      json
// @Param       id    path  string       true  "Friend id"
// @Param       body  body  domain.Chat  true  "Chat"
// @Success     204   {string}  string  "No Content"
// @Failure     404   {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id}/chat [put]
func (h *Handlers) SaveChat(c *gin.Context) {
	var chat domain.Chat
	if !bindJSON(c, &chat) {
		return
	}
	chat.FriendID = c.Param("id")
	if err := h.dir.SaveChat(c.Request.Context(), chat); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete the chat of a friend
// @Tags        Chats
// @Param       id   path  string  true  "Friend id"
// @Success     204  {string}  string  "No Content"
// @Router      /friends/{id}/chat [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	if err := h.dir.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List chat messages (paginated)
// @Description Returns a page of the transcript, oldest first. A friend without a chat has no messages.
// @Tags        Chats
// @Produce     json
// @Param       id         path   string  true   "Friend id"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(500) default(50)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	page, pageSize := clampPagination(c)

	var msgs []domain.Message
	chat, err := h.dir.GetChat(ctx, id)
	switch {
	case err == nil:
		msgs = chat.Messages
	case errors.Is(err, services.ErrNotFound):
		if _, ferr := h.dir.GetFriend(ctx, id); ferr != nil {
			serviceError(c, ferr)
			return
		}
		msgs = []domain.Message{}
	default:
		serviceError(c, err)
		return
	}

	items, p := paginate(msgs, page, pageSize)
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: p})
}

// Send godoc
// @ID          sendMessage
// @Summary     Send a message and get the AI reply
// @Description Appends the user message, asks the configured provider for a reply, appends it and applies its token usage once. At most one exchange per chat may be pending.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Param       id    path      string                true  "Friend id"
// @Param       body  body      handlers.SendRequest  true  "User message"
// @Success     200   {object}  services.SendResult
// @Failure     400   {object}  handlers.ErrorResponse  "Empty message"
// @Failure     404   {object}  handlers.ErrorResponse  "Friend not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Exchange in flight or abandoned"
// @Failure     502   {object}  handlers.ErrorResponse  "Provider failed"
// @Router      /friends/{id}/send [post]
func (h *Handlers) Send(c *gin.Context) {
	var req SendRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.chat.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// AbandonExchange godoc
// @ID          abandonExchange
// @Summary     Abandon the pending AI exchange
// @Description The eventual provider result of the pending exchange is discarded.
// @Tags        Chats
// @Produce     json
// @Param       id   path      string  true  "Friend id"
// @Success     200  {object}  handlers.AbandonResponse
// @Router      /friends/{id}/exchange [delete]
func (h *Handlers) AbandonExchange(c *gin.Context) {
	ok(c, http.StatusOK, AbandonResponse{Abandoned: h.chat.Abandon(c.Param("id"))})
}

// GetStats godoc
// @ID          getStats
// @Summary     Get token statistics
// @Tags        Stats
// @Produce     json
// @Param       id   path      string  true  "Friend id"
// @Success     200  {object}  domain.TokenStats
// @Failure     404  {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id}/stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.acc.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ApplyUsage godoc
// @ID          applyUsage
// @Summary     Apply token usage
// @Description Adds the usage of one completed exchange to the running totals. Not idempotent.
// @Tags        Stats
// @Accept      json
// @Produce     json
// @Param       id    path      string        true  "Friend id"
// @Param       body  body      domain.Usage  true  "Usage"
// @Success     200   {object}  domain.TokenStats
// @Failure     400   {object}  handlers.ErrorResponse  "Negative counts"
// @Failure     404   {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id}/stats/usage [post]
func (h *Handlers) ApplyUsage(c *gin.Context) {
	var u domain.Usage
	if !bindJSON(c, &u) {
		return
	}
	stats, err := h.acc.ApplyUsage(c.Request.Context(), c.Param("id"), u)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ResetStats godoc
// @ID          resetStats
// @Summary     Reset token statistics
// @Tags        Stats
// @Produce     json
// @Param       id   path      string  true  "Friend id"
// @Success     200  {object}  domain.TokenStats
// @Failure     404  {object}  handlers.ErrorResponse  "Friend not found"
// @Router      /friends/{id}/stats [delete]
func (h *Handlers) ResetStats(c *gin.Context) {
	stats, err := h.acc.ResetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// GetMemory godoc
// @ID          getMemory
// @Summary     Get the memory of a friend
// @Tags        Memory
// @Produce     json
// @Param       id   path      string  true  "Friend id"
// @Success     200  {object}  domain.Memory
// @Failure     404  {object}  handlers.ErrorResponse  "No memory"
// @Router      /friends/{id}/memory [get]
func (h *Handlers) GetMemory(c *gin.Context) {
	m, err := h.dir.GetMemory(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// SaveMemory godoc
// @ID          saveMemory
// @Summary     Replace the memory of a friend
// @Tags        Memory
// @Accept      json
// @Produce     json
// @Param       id    path      string         true  "Friend id"
// @Param       body  body      domain.Memory  true  "Memory"
// @Success     200   {object}  domain.Memory
// @Router      /friends/{id}/memory [put]
func (h *Handlers) SaveMemory(c *gin.Context) {
	var m domain.Memory
	if !bindJSON(c, &m) {
		return
	}
	m.FriendID = c.Param("id")
	saved, err := h.dir.SaveMemory(c.Request.Context(), m)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, saved)
}

// AppendMemoryEntry godoc
// @ID          appendMemoryEntry
// @Summary     Append a memory entry
// @Tags        Memory
// @Accept      json
// @Produce     json
// @Param       id    path      string                       true  "Friend id"
// @Param       body  body      handlers.MemoryEntryRequest  true  "Entry"
// @Success     200   {object}  domain.Memory
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown kind or empty text"
// @Router      /friends/{id}/memory/entries [post]
func (h *Handlers) AppendMemoryEntry(c *gin.Context) {
	var req MemoryEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.dir.AppendMemoryEntry(c.Request.Context(), c.Param("id"), req.Kind, req.Text)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMemory godoc
// @ID          deleteMemory
// @Summary     Delete the memory of a friend
// @Tags        Memory
// @Param       id   path  string  true  "Friend id"
// @Success     204  {string}  string  "No Content"
// @Router      /friends/{id}/memory [delete]
func (h *Handlers) DeleteMemory(c *gin.Context) {
	if err := h.dir.DeleteMemory(c.Request.Context(), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}
