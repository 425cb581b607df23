package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	infra "github.com/pot-code/learning-service/internal/infrastructure"
	"github.com/pot-code/learning-service/internal/infrastructure/auth"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
	"github.com/pot-code/learning-service/internal/record"
	"go.uber.org/zap"
)

// StreamHandler accepts progress events pushed by players over a websocket,
// every frame is answered with a progressAck
type StreamHandler struct {
	recordUseCase record.RecordUseCase
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
	websocket     *infra.Websocket
	frameTimeout  time.Duration
}

func NewStreamHandler(
	RecordUseCase record.RecordUseCase,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
	Websocket *infra.Websocket,
	FrameTimeout time.Duration,
) *StreamHandler {
	return &StreamHandler{RecordUseCase, JWTUtil, Validator, Websocket, FrameTimeout}
}

type progressAck struct {
	SectionID     int64       `json:"section_id"`
	NewlyFinished bool        `json:"newly_finished"`
	Error         interface{} `json:"error,omitempty"`
}

// HandleProgressStream GET /learning-records/stream
func (sh *StreamHandler) HandleProgressStream(c echo.Context) error {
	learnerID := sh.jwtUtil.LearnerID(c)
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	ctx := c.Request().Context()
	logger := logging.ExtractLoggerFromContext(ctx)

	return sh.websocket.Serve(c, func(conn *websocket.Conn) error {
		event := new(record.ProgressEvent)
		if err := conn.ReadJSON(event); err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				logger.Debug("progress stream closed", zap.Error(err))
			}
			return err
		}

		ack := &progressAck{SectionID: event.SectionID}
		if fields := sh.validator.Struct(event); fields != nil {
			ack.Error = NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", fields).SetTraceID(traceID)
			return sh.websocket.WriteJSON(conn, ack)
		}

		fctx, cancel := ctx, context.CancelFunc(func() {})
		if sh.frameTimeout > 0 {
			fctx, cancel = context.WithTimeout(ctx, sh.frameTimeout)
		}
		newly, err := sh.recordUseCase.SubmitProgress(fctx, learnerID, event)
		cancel()
		if err != nil {
			code, body := NewErrorResponse(err, traceID)
			if code >= http.StatusInternalServerError {
				logger.Error(err.Error(), zap.Int64("learning.section.id", event.SectionID))
			}
			ack.Error = body
		}
		ack.NewlyFinished = newly
		return sh.websocket.WriteJSON(conn, ack)
	})
}
