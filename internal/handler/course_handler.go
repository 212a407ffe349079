package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/dto"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	UpdateWeights(ctx context.Context, id string, req dto.WeightsRequest, actor models.Actor) (*models.Course, error)
	Finalize(ctx context.Context, id string, actor models.Actor) (*models.Course, error)
	Reopen(ctx context.Context, id string, actor models.Actor) (*models.Course, error)
}

// CourseHandler exposes course and weight map endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs the course handler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Create godoc
// @Summary Create a course
// @Description Weights default to the configured grading weights when omitted.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCourseResponse(*course))
}

// Get godoc
// @Summary Get a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseResponse(*course), nil)
}

// UpdateWeights godoc
// @Summary Replace the component weights of a course
// @Description Weights outside 0..1 are rejected. A sum other than 1.0 is stored but blocks finalization.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.WeightsRequest true "Weights"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/weights [put]
func (h *CourseHandler) UpdateWeights(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.WeightsRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.UpdateWeights(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseResponse(*course), nil)
}

// Finalize godoc
// @Summary Finalize a course grade sheet
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/finalize [post]
func (h *CourseHandler) Finalize(c *gin.Context) {
	h.lock(c, h.courses.Finalize)
}

// Reopen godoc
// @Summary Reopen a finalized course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/reopen [post]
func (h *CourseHandler) Reopen(c *gin.Context) {
	h.lock(c, h.courses.Reopen)
}

func (h *CourseHandler) lock(c *gin.Context, fn func(context.Context, string, models.Actor) (*models.Course, error)) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseResponse(*course), nil)
}
