package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, courseID string, req dto.ExportRequest, actor models.Actor) (*dto.ExportResponse, error)
	Download(ctx context.Context, token string) ([]byte, string, string, error)
	Import(ctx context.Context, courseID string, format models.ExportFormat, r io.Reader, actor models.Actor) (*dto.ImportResponse, error)
}

// multipartOverhead leaves room for form boundaries around the uploaded sheet.
const multipartOverhead = 64 * 1024

// ExportHandler exposes gradebook export, download and import.
type ExportHandler struct {
	exports        exportService
	maxImportBytes int64
}

// NewExportHandler constructs the export handler.
func NewExportHandler(exports exportService, maxImportBytes int64) *ExportHandler {
	if maxImportBytes <= 0 {
		maxImportBytes = 5 * 1024 * 1024
	}
	return &ExportHandler{exports: exports, maxImportBytes: maxImportBytes}
}

// Export godoc
// @Summary Export the gradebook
// @Description Renders the grade sheet as CSV, PDF or XLSX and returns a signed download link.
// @Tags Export
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.ExportRequest false "Format"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExportRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}
	result, err := h.exports.Export(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a stored export
// @Tags Export
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 410 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	data, filename, contentType, err := h.exports.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, filename, contentType, data)
}

// Import godoc
// @Summary Import an edited gradebook
// @Description Accepts the CSV or XLSX layout produced by the export endpoint. Computed columns are ignored.
// @Tags Export
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param file formData file true "CSV or XLSX gradebook"
// @Param format formData string false "csv or xlsx, detected from the file name when omitted"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /courses/{id}/import [post]
func (h *ExportHandler) Import(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	raw := c.PostForm("format")
	if raw == "" {
		raw = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	format, ok := models.ParseExportFormat(raw)
	if !ok || format == models.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedFormat, "import accepts csv or xlsx files"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.exports.Import(c.Request.Context(), c.Param("id"), format, file, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
