package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type reportService interface {
	StudentReport(ctx context.Context, courseID, studentID string) (*dto.StudentReportResponse, error)
	StudentReportPDF(ctx context.Context, courseID, studentID string) ([]byte, string, error)
}

// ReportHandler serves per-student performance reports.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs the report handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentReport godoc
// @Summary Student performance report
// @Description Returns JSON by default or a PDF attachment with format=pdf.
// @Tags Reports
// @Produce json
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param format query string false "json or pdf"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students/{studentId}/report [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	courseID, studentID := c.Param("id"), c.Param("studentId")
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		report, err := h.reports.StudentReport(c.Request.Context(), courseID, studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, report, nil)
	case string(models.ExportFormatPDF):
		data, filename, err := h.reports.StudentReportPDF(c.Request.Context(), courseID, studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, filename, models.ExportFormatPDF.ContentType(), data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedFormat, "report format must be json or pdf"))
	}
}
