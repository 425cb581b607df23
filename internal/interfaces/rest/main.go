package rest

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	infra "github.com/pot-code/learning-service/internal/infrastructure"
	"github.com/pot-code/learning-service/internal/infrastructure/auth"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
	"github.com/pot-code/learning-service/internal/interfaces/rest/handler"
	"github.com/pot-code/learning-service/internal/interfaces/rest/middleware"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/pot-code/learning-service/internal/record"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// RevokedTokenPrefix key prefix of revoked tokens in the kv store, the account
// service writes them on sign out
const RevokedTokenPrefix = "token:revoked:"

// Serve create http transport server and block until it stops
func Serve(
	conn driver.ITransactionalDB,
	kv driver.KeyValueDB,
	option *infra.AppConfig,
	LessonUseCase lesson.LessonUseCase,
	RecordUseCase record.RecordUseCase,
	logger *zap.Logger,
) error {
	app := NewServer(conn, kv, option, LessonUseCase, RecordUseCase, logger)
	printRoutes(app, logger)
	if err := app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// NewServer create the echo app with every route registered
func NewServer(
	conn driver.ITransactionalDB,
	kv driver.KeyValueDB,
	option *infra.AppConfig,
	LessonUseCase lesson.LessonUseCase,
	RecordUseCase record.RecordUseCase,
	logger *zap.Logger,
) *echo.Echo {
	var (
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket(60 * time.Second)
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName)
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: func(ctx context.Context, token string) (bool, error) {
				return kv.Exists(ctx, RevokedTokenPrefix+token)
			},
		})
	)
	app.HideBanner = true
	app.HidePort = true

	registerLivenessProbe(app, conn, kv)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(e echo.Context) bool {
			return strings.HasPrefix(e.Request().RequestURI, "/healthz")
		},
	}))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				code, body := handler.NewErrorResponse(err, traceID)
				if code >= http.StatusInternalServerError {
					logger.Error(err.Error(), zap.String("trace.id", traceID),
						zap.String("url.path", c.Request().RequestURI))
				}
				c.JSON(code, body)
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return c.IsWebSocket()
		},
	}))

	var (
		LessonHandler = handler.NewLessonHandler(LessonUseCase, jwtUtil, validator)
		RecordHandler = handler.NewRecordHandler(RecordUseCase, jwtUtil, validator)
		StreamHandler = handler.NewStreamHandler(RecordUseCase, jwtUtil, validator, websocket, option.RequestTimeout)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger), jwtMiddleware},
			groups: []*apiGroup{
				{
					prefix: "/learning-records",
					routes: []*route{
						{"POST", "", RecordHandler.HandleSubmitProgress, nil},
						{"GET", "/course/:courseId", RecordHandler.HandleGetCourseProgress, nil},
						{"GET", "/stream", StreamHandler.HandleProgressStream, nil},
					},
				},
				{
					prefix: "/lessons",
					routes: []*route{
						{"POST", "", LessonHandler.HandleAddLessons, nil},
						{"GET", "/page", LessonHandler.HandleListLessons, nil},
						{"GET", "/now", LessonHandler.HandleGetCurrentLesson, nil},
						{"POST", "/plans", LessonHandler.HandleCreatePlan, nil},
						{"GET", "/plans", LessonHandler.HandleGetPlans, nil},
						{"GET", "/:courseId/valid", LessonHandler.HandleLessonValid, nil},
						{"GET", "/:courseId", LessonHandler.HandleGetLesson, nil},
						{"DELETE", "/:courseId", LessonHandler.HandleDeleteLesson, nil},
					},
				},
			},
		})
	return app
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Info("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, kv driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		if db.Ping() == nil && kv.Ping() == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
