package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/middleware"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// Handlers groups every API handler mounted by RegisterRoutes.
type Handlers struct {
	Courses   *CourseHandler
	Records   *StudentRecordHandler
	Analytics *AnalyticsHandler
	Reports   *ReportHandler
	Exports   *ExportHandler
	Settings  *SettingsHandler
}

// RegisterRoutes mounts the gradebook API on api. Everything except export downloads requires a bearer token.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	api.GET("/export/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens), middleware.WithResponseMeta(), staff)

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id/weights", h.Courses.UpdateWeights)
	courses.POST("/:id/finalize", h.Courses.Finalize)
	courses.POST("/:id/reopen", admin, h.Courses.Reopen)

	courses.GET("/:id/students", h.Records.List)
	courses.POST("/:id/students", h.Records.Enroll)
	courses.GET("/:id/students/:studentId", h.Records.Get)
	courses.PUT("/:id/students/:studentId/grades", h.Records.SaveGrades)
	courses.PUT("/:id/students/:studentId/status", h.Records.SetStatus)
	courses.GET("/:id/students/:studentId/history", h.Records.History)
	courses.GET("/:id/students/:studentId/report", h.Reports.StudentReport)

	courses.GET("/:id/analytics/stats", h.Analytics.Stats)
	courses.GET("/:id/analytics/ranking", h.Analytics.Ranking)
	courses.GET("/:id/analytics/at-risk", h.Analytics.AtRisk)

	courses.POST("/:id/export", h.Exports.Export)
	courses.POST("/:id/import", h.Exports.Import)

	secured.GET("/analytics/system", admin, h.Analytics.System)
	secured.GET("/settings/grading", h.Settings.Grading)
	secured.PUT("/settings/grading", admin, h.Settings.UpdateGrading)
}
