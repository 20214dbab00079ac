// Group HTTP handlers.
//
//   - GET    /groups
//   - POST   /groups
//   - GET    /groups/{id}/friends
//   - PUT    /groups/{id}          (rename)
//   - DELETE /groups/{id}          (members move to the default group)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// GroupNameRequest carries a group name for create and rename.
type GroupNameRequest struct {
	Name string `json:"name" binding:"required" example:"Family"`
}

// ListGroupsResponse wraps the group list.
type ListGroupsResponse struct {
	Groups []domain.Group `json:"groups"`
}

// ListGroups godoc
// @ID          listGroups
// @Summary     List groups
// @Description Returns every group by order index. The default group always exists.
// @Tags        Groups
// @Produce     json
// @Success     200  {object}  handlers.ListGroupsResponse
// @Router      /groups [get]
func (h *Handlers) ListGroups(c *gin.Context) {
	groups, err := h.dir.GetAllGroups(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListGroupsResponse{Groups: groups})
}

// AddGroup godoc
// @ID          addGroup
// @Summary     Create a group
// @Tags        Groups
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.GroupNameRequest  true  "Group name"
// @Success     201   {object}  domain.Group
// @Failure     400   {object}  handlers.ErrorResponse  "Blank name"
// @Failure     409   {object}  handlers.ErrorResponse  "Name already in use"
// @Router      /groups [post]
func (h *Handlers) AddGroup(c *gin.Context) {
	var req GroupNameRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.dir.AddGroup(c.Request.Context(), req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, g)
}

// ListGroupFriends godoc
// @ID          listGroupFriends
// @Summary     List the friends of a group
// @Tags        Groups
// @Produce     json
// @Param       id   path      string  true  "Group id"  example(default)
// @Success     200  {object}  handlers.ListFriendsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Group not found"
// @Router      /groups/{id}/friends [get]
func (h *Handlers) ListGroupFriends(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.dir.GetGroup(ctx, id); err != nil {
		serviceError(c, err)
		return
	}
	friends, err := h.dir.GetFriendsByGroup(ctx, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListFriendsResponse{Friends: friends})
}

// RenameGroup godoc
// @ID          renameGroup
// @Summary     Rename a group
// @Tags        Groups
// @Accept      json
// @Produce     json
// @Param       id    path      string                     true  "Group id"
// @Param       body  body      handlers.GroupNameRequest  true  "New name"
// @Success     200   {object}  domain.Group
// @Failure     404   {object}  handlers.ErrorResponse  "Group not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Name in use or default group"
// @Router      /groups/{id} [put]
func (h *Handlers) RenameGroup(c *gin.Context) {
	var req GroupNameRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.dir.RenameGroup(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, g)
}

// DeleteGroup godoc
// @ID          deleteGroup
// @Summary     Delete a group
// @Description Members are reassigned to the default group, which itself cannot be deleted.
// @Tags        Groups
// @Param       id   path      string  true  "Group id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Group not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Default group is protected"
// @Router      /groups/{id} [delete]
func (h *Handlers) DeleteGroup(c *gin.Context) {
	if err := h.dir.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}
