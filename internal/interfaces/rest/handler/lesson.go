package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/auth"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
	"github.com/pot-code/learning-service/internal/lesson"
)

type LessonHandler struct {
	lessonUseCase lesson.LessonUseCase
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
}

func NewLessonHandler(LessonUseCase lesson.LessonUseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *LessonHandler {
	handler := &LessonHandler{LessonUseCase, JWTUtil, Validator}
	return handler
}

type enrollRequest struct {
	CourseIDs []int64 `json:"course_ids" validate:"required,min=1,max=100,dive,min=1"`
}

type enrollResponse struct {
	Created int `json:"created"`
}

type planRequest struct {
	CourseID int64 `json:"course_id" validate:"required,min=1"`
	WeekFreq int   `json:"week_freq" validate:"min=0,max=100"`
}

type validityResponse struct {
	Valid    bool   `json:"valid"`
	LessonID string `json:"lesson_id,omitempty"`
}

// HandleAddLessons POST /lessons
func (lh *LessonHandler) HandleAddLessons(c echo.Context) error {
	req := new(enrollRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if fields := lh.validator.Struct(req); fields != nil {
		return validationFailed(c, fields)
	}

	created, err := lh.lessonUseCase.AddUserLessons(c.Request().Context(), lh.jwtUtil.LearnerID(c), req.CourseIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &enrollResponse{created})
}

// HandleListLessons GET /lessons/page
func (lh *LessonHandler) HandleListLessons(c echo.Context) error {
	page, ok, err := pageQuery(c, lh.validator)
	if !ok {
		return err
	}
	result, err := lh.lessonUseCase.ListLessons(c.Request().Context(), lh.jwtUtil.LearnerID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetCurrentLesson GET /lessons/now, 204 when no lesson is in progress
func (lh *LessonHandler) HandleGetCurrentLesson(c echo.Context) error {
	current, err := lh.lessonUseCase.GetCurrentLesson(c.Request().Context(), lh.jwtUtil.LearnerID(c))
	if err != nil {
		return err
	}
	if current == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, current)
}

// HandleLessonValid GET /lessons/:courseId/valid
func (lh *LessonHandler) HandleLessonValid(c echo.Context) error {
	courseID, ok, err := courseIDParam(c)
	if !ok {
		return err
	}
	id, err := lh.lessonUseCase.IsLessonValid(c.Request().Context(), lh.jwtUtil.LearnerID(c), courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &validityResponse{Valid: id != "", LessonID: id})
}

// HandleGetLesson GET /lessons/:courseId
func (lh *LessonHandler) HandleGetLesson(c echo.Context) error {
	courseID, ok, err := courseIDParam(c)
	if !ok {
		return err
	}
	result, err := lh.lessonUseCase.GetLessonByCourse(c.Request().Context(), lh.jwtUtil.LearnerID(c), courseID)
	if err != nil {
		return err
	}
	if result == nil {
		return domain.ErrLessonNotFound
	}
	return c.JSON(http.StatusOK, result)
}

// HandleDeleteLesson DELETE /lessons/:courseId
func (lh *LessonHandler) HandleDeleteLesson(c echo.Context) error {
	courseID, ok, err := courseIDParam(c)
	if !ok {
		return err
	}
	if err := lh.lessonUseCase.DeleteLesson(c.Request().Context(), lh.jwtUtil.LearnerID(c), courseID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleCreatePlan POST /lessons/plans
func (lh *LessonHandler) HandleCreatePlan(c echo.Context) error {
	req := new(planRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if fields := lh.validator.Struct(req); fields != nil {
		return validationFailed(c, fields)
	}

	if err := lh.lessonUseCase.CreatePlan(c.Request().Context(), lh.jwtUtil.LearnerID(c), req.CourseID, req.WeekFreq); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetPlans GET /lessons/plans
func (lh *LessonHandler) HandleGetPlans(c echo.Context) error {
	page, ok, err := pageQuery(c, lh.validator)
	if !ok {
		return err
	}
	summary, err := lh.lessonUseCase.GetWeeklyPlanSummary(c.Request().Context(), lh.jwtUtil.LearnerID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
