// Bulk import/export HTTP handlers (admin only).
//
// This file exposes catalog interchange: CSV and XLSX import from a
// multipart upload, and streaming CSV / serialized XLSX export.
package handlers

import (
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// maxImportBytes caps bulk upload size at 16 MiB.
const maxImportBytes = 16 << 20

// ImportAnimals godoc
// @ID          importAnimals
// @Summary     Bulk-import animals (admin)
// @Description Reads the multipart "file" upload as CSV or XLSX depending on
// @Description its extension. Malformed rows are skipped and reported, not
// @Description fatal.
// @Tags        Bulk
// @Accept      multipart/form-data
// @Produce     json
// @Success     200 {object} services.ImportResult
// @Failure     400 {object} handlers.ErrorResponse "Missing or unreadable file"
// @Router      /animals/import [post]
func (h *Handlers) ImportAnimals(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxImportBytes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "import exceeds the 16 MiB limit")
		return
	}

	res, err := h.importByExtension(c, file, header)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeImportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// importByExtension routes the upload to the CSV or XLSX importer.
func (h *Handlers) importByExtension(c *gin.Context, file multipart.File, header *multipart.FileHeader) (any, error) {
	switch strings.ToLower(path.Ext(header.Filename)) {
	case ".xlsx":
		return h.bulkSvc.ImportXLSX(c.Request.Context(), file)
	default:
		return h.bulkSvc.ImportCSV(c.Request.Context(), file)
	}
}

// ExportAnimalsCSV godoc
// @ID          exportAnimalsCSV
// @Summary     Export the catalog as CSV (admin)
// @Tags        Bulk
// @Produce     text/csv
// @Success     200 {string} string "CSV payload"
// @Router      /animals/export [get]
func (h *Handlers) ExportAnimalsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", exportDisposition("csv"))
	if err := h.bulkSvc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		// Headers may already be out; log via the envelope only when possible.
		if !c.Writer.Written() {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
	}
}

// ExportAnimalsXLSX godoc
// @ID          exportAnimalsXLSX
// @Summary     Export the catalog as XLSX (admin)
// @Tags        Bulk
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success     200 {string} string "XLSX payload"
// @Router      /animals/export.xlsx [get]
func (h *Handlers) ExportAnimalsXLSX(c *gin.Context) {
	data, err := h.bulkSvc.ExportXLSX(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Header("Content-Disposition", exportDisposition("xlsx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// exportDisposition builds a dated attachment filename.
func exportDisposition(ext string) string {
	return `attachment; filename="animals-` + time.Now().UTC().Format("2006-01-02") + `.` + ext + `"`
}
