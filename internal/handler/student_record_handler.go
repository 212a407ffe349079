package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type gradeService interface {
	Enroll(ctx context.Context, courseID string, req dto.EnrollStudentRequest, actor models.Actor) (*dto.StudentRecordResponse, error)
	ListRecords(ctx context.Context, courseID string, query dto.RecordQuery) ([]dto.StudentRecordResponse, *models.Pagination, error)
	GetRecord(ctx context.Context, courseID, studentID string) (*dto.StudentRecordResponse, error)
	SaveGrades(ctx context.Context, courseID, studentID string, req dto.SaveGradesRequest, actor models.Actor) (*dto.StudentRecordResponse, error)
	SetStatus(ctx context.Context, courseID, studentID string, req dto.SetStatusRequest, actor models.Actor) (*dto.StudentRecordResponse, error)
	History(ctx context.Context, courseID, studentID string, newestFirst bool) ([]dto.HistoryEntryResponse, error)
}

// StudentRecordHandler exposes the grade sheet of a course.
type StudentRecordHandler struct {
	grades gradeService
}

// NewStudentRecordHandler constructs the grade sheet handler.
func NewStudentRecordHandler(grades gradeService) *StudentRecordHandler {
	return &StudentRecordHandler{grades: grades}
}

// List godoc
// @Summary List the grade sheet of a course
// @Tags Grade Sheet
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param status query string false "Filter by status"
// @Param search query string false "Match student ID or name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (max 200)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *StudentRecordHandler) List(c *gin.Context) {
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	records, pagination, err := h.grades.ListRecords(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Enroll godoc
// @Summary Add a student to the grade sheet
// @Tags Grade Sheet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.EnrollStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/students [post]
func (h *StudentRecordHandler) Enroll(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EnrollStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.grades.Enroll(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Get one grade sheet row
// @Tags Grade Sheet
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students/{studentId} [get]
func (h *StudentRecordHandler) Get(c *gin.Context) {
	record, err := h.grades.GetRecord(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// SaveGrades godoc
// @Summary Replace the scores and comments of a student
// @Description Omitted scores become ungraded. The previous values are kept in the grade history.
// @Tags Grade Sheet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.SaveGradesRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/students/{studentId}/grades [put]
func (h *StudentRecordHandler) SaveGrades(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SaveGradesRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.grades.SaveGrades(c.Request.Context(), c.Param("id"), c.Param("studentId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// SetStatus godoc
// @Summary Mark a student incomplete or withdrawn
// @Description Use status "auto" to derive the status from scores again.
// @Tags Grade Sheet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.SetStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students/{studentId}/status [put]
func (h *StudentRecordHandler) SetStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.grades.SetStatus(c.Request.Context(), c.Param("id"), c.Param("studentId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// History godoc
// @Summary Grade history of a student
// @Tags Grade Sheet
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param order query string false "oldest (default) or newest"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students/{studentId}/history [get]
func (h *StudentRecordHandler) History(c *gin.Context) {
	order := c.DefaultQuery("order", "oldest")
	if order != "oldest" && order != "newest" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "order must be oldest or newest"))
		return
	}
	entries, err := h.grades.History(c.Request.Context(), c.Param("id"), c.Param("studentId"), order == "newest")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
