package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-service/internal/infrastructure/auth"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
	"github.com/pot-code/learning-service/internal/record"
)

type RecordHandler struct {
	recordUseCase record.RecordUseCase
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
}

func NewRecordHandler(RecordUseCase record.RecordUseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *RecordHandler {
	handler := &RecordHandler{RecordUseCase, JWTUtil, Validator}
	return handler
}

type submitResponse struct {
	SectionID     int64 `json:"section_id"`
	NewlyFinished bool  `json:"newly_finished"`
}

// HandleSubmitProgress POST /learning-records
func (rh *RecordHandler) HandleSubmitProgress(c echo.Context) error {
	event := new(record.ProgressEvent)
	if err := c.Bind(event); err != nil {
		return err
	}
	if fields := rh.validator.Struct(event); fields != nil {
		return validationFailed(c, fields)
	}

	newly, err := rh.recordUseCase.SubmitProgress(c.Request().Context(), rh.jwtUtil.LearnerID(c), event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &submitResponse{event.SectionID, newly})
}

// HandleGetCourseProgress GET /learning-records/course/:courseId
func (rh *RecordHandler) HandleGetCourseProgress(c echo.Context) error {
	courseID, ok, err := courseIDParam(c)
	if !ok {
		return err
	}
	progress, err := rh.recordUseCase.GetProgressForCourse(c.Request().Context(), rh.jwtUtil.LearnerID(c), courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progress)
}
