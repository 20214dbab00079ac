// Import/export HTTP handlers.
//
//   - GET  /export                                         (full document)
//   - GET  /export/partial?friends=&persona=&chats=&memories=
//   - POST /import                                         (full or partial document)
//
// Exports are served as attachments; imports accept the raw document body and
// are applied all-or-nothing.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// Export godoc
// @ID          exportAll
// @Summary     Export the whole store
// @Description Returns every collection and configuration record as one versioned JSON document.
// @Tags        Transfer
// @Produce     json
// @Success     200  {object}  domain.ExportDocument
// @Header      200  {string}  Content-Disposition  "attachment; filename=..."
// @Router      /export [get]
func (h *Handlers) Export(c *gin.Context) {
	doc, err := h.transfer.ExportAll(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	attachment(c, "companion-backup", doc.ExportTime)
	ok(c, http.StatusOK, doc)
}

// ExportPartial godoc
// @ID          exportPartial
// @Summary     Export selected categories per friend
// @Description At least one selector must be true.
// @Tags        Transfer
// @Produce     json
// @Param       friends   query     bool  false  "Include profiles"
// @Param       persona   query     bool  false  "Include personas"
// @Param       chats     query     bool  false  "Include chats"
// @Param       memories  query     bool  false  "Include memories"
// @Success     200  {object}  domain.PartialDocument
// @Failure     400  {object}  handlers.ErrorResponse  "No selector"
// @Router      /export/partial [get]
func (h *Handlers) ExportPartial(c *gin.Context) {
	var sel domain.ExportSelectors
	for name, dst := range map[string]*bool{
		"friends":  &sel.Friends,
		"persona":  &sel.Persona,
		"chats":    &sel.Chats,
		"memories": &sel.Memories,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a boolean")
			return
		}
		*dst = v
	}
	doc, err := h.transfer.ExportPartial(c.Request.Context(), sel)
	if err != nil {
		serviceError(c, err)
		return
	}
	attachment(c, "companion-partial", doc.ExportTime)
	ok(c, http.StatusOK, doc)
}

// Import godoc
// @ID          importDocument
// @Summary     Import a document
// @Description Validates the whole document, then applies it in one atomic write. Collections absent from a full document are left untouched.
// @Tags        Transfer
// @Accept      json
// @Param       body  body      domain.ExportDocument  true  "Export document"
// @Success     204   {string}  string  "No Content"
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid document"
// @Failure     413   {object}  handlers.ErrorResponse  "Document too large"
// @Failure     507   {object}  handlers.ErrorResponse  "Storage write failed"
// @Router      /import [post]
func (h *Handlers) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "document too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read body")
		return
	}
	if err := h.transfer.ImportDocument(c.Request.Context(), data); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

func attachment(c *gin.Context, base string, at time.Time) {
	name := fmt.Sprintf("%s-%s.json", base, at.UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
}
