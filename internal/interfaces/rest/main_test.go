package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-service/internal/domain"
	infra "github.com/pot-code/learning-service/internal/infrastructure"
	"github.com/pot-code/learning-service/internal/infrastructure/auth"
	"github.com/pot-code/learning-service/internal/infrastructure/dbtest"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/pot-code/learning-service/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testLearner = "learner-1"

type testServer struct {
	app     *echo.Echo
	kv      *driver.MemoryKV
	lessons *mockLessonUseCase
	records *mockRecordUseCase
	token   string
}

type errorBody struct {
	Code          int               `json:"code"`
	Title         string            `json:"title"`
	Detail        string            `json:"detail"`
	TraceID       string            `json:"trace_id"`
	InvalidParams []json.RawMessage `json:"invalid_params"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	option := new(infra.AppConfig)
	option.Env = infra.EnvProduction
	option.RequestTimeout = 5 * time.Second
	option.Security.JWTMethod = "HS256"
	option.Security.JWTSecret = "secret"
	option.Security.TokenName = "token"

	s := &testServer{
		kv:      driver.NewMemoryKV(),
		lessons: new(mockLessonUseCase),
		records: new(mockRecordUseCase),
	}
	s.app = NewServer(dbtest.NewSQLite(t), s.kv, option, s.lessons, s.records, zap.NewNop())

	token, err := auth.NewJWTUtil("HS256", "secret", "token").Sign(&auth.AppTokenClaims{
		UID:            testLearner,
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	require.NoError(t, err)
	s.token = token
	return s
}

func (s *testServer) request(method, path, body string, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token)
	for _, fn := range prepare {
		fn(req)
	}
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *errorBody {
	t.Helper()
	body := new(errorBody)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), body), rec.Body.String())
	return body
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)
	s.lessons.current = func(ctx context.Context, learnerID string) (*lesson.CurrentLesson, error) {
		assert.Equal(t, testLearner, learnerID)
		return nil, nil
	}

	tests := []struct {
		name    string
		prepare func(*http.Request)
		want    int
	}{
		{"bearer", func(*http.Request) {}, http.StatusNoContent},
		{"no token", func(r *http.Request) { r.Header.Del(echo.HeaderAuthorization) }, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer abc") }, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) {
			r.Header.Del(echo.HeaderAuthorization)
			r.AddCookie(&http.Cookie{Name: "token", Value: s.token})
		}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.request(http.MethodGet, "/api/v1/lessons/now", "", tt.prepare)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, s.kv.SetEX(context.Background(), RevokedTokenPrefix+s.token, "1", time.Minute))
		rec := s.request(http.MethodGet, "/api/v1/lessons/now", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, http.StatusUnauthorized, decodeError(t, rec).Code)
	})
}

func TestSubmitProgress(t *testing.T) {
	s := newTestServer(t)
	s.records.submit = func(ctx context.Context, learnerID string, event *record.ProgressEvent) (bool, error) {
		assert.Equal(t, testLearner, learnerID)
		assert.Equal(t, "l1", event.LessonID)
		assert.Equal(t, record.SectionVideo, event.SectionType)
		assert.Equal(t, 60, event.Moment)
		return true, nil
	}

	rec := s.request(http.MethodPost, "/api/v1/learning-records",
		`{"lesson_id":"l1","section_id":3,"section_type":1,"moment":60,"duration":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"section_id":3,"newly_finished":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSubmitProgress_validation(t *testing.T) {
	s := newTestServer(t)
	s.records.submit = func(ctx context.Context, learnerID string, event *record.ProgressEvent) (bool, error) {
		t.Fatal("use case must not be called")
		return false, nil
	}

	for _, body := range []string{
		`{"section_id":3,"section_type":1,"moment":60,"duration":100}`,
		`{"lesson_id":"l1","section_id":0,"section_type":2}`,
		`{"lesson_id":"l1","section_id":3,"section_type":5}`,
		`{"lesson_id":"l1","section_id":3,"section_type":1,"moment":-1,"duration":100}`,
	} {
		rec := s.request(http.MethodPost, "/api/v1/learning-records", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decodeError(t, rec).InvalidParams, body)
	}

	rec := s.request(http.MethodPost, "/api/v1/learning-records", `{"lesson_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("bad: %w", domain.ErrValidation), http.StatusBadRequest},
		{"not found", domain.ErrLessonNotFound, http.StatusNotFound},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"section outside course", fmt.Errorf("section 9: %w", domain.ErrSectionNotInCourse), http.StatusBadRequest},
		{"every section counted", domain.ErrAllSectionsCounted, http.StatusConflict},
		{"dependency", fmt.Errorf("course service: %w", domain.ErrDependency), http.StatusServiceUnavailable},
		{"storage", domain.ErrLessonVanished, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.records.submit = func(context.Context, string, *record.ProgressEvent) (bool, error) {
				return false, tt.err
			}
			rec := s.request(http.MethodPost, "/api/v1/learning-records", `{"lesson_id":"l1","section_id":1,"section_type":2}`)
			assert.Equal(t, tt.want, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.want, body.Code)
			assert.NotEmpty(t, body.TraceID)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Detail)
			} else {
				assert.Equal(t, tt.err.Error(), body.Detail)
			}
		})
	}
}

func TestPanicRecovered(t *testing.T) {
	s := newTestServer(t)
	s.lessons.current = func(context.Context, string) (*lesson.CurrentLesson, error) {
		panic("nil map")
	}
	rec := s.request(http.MethodGet, "/api/v1/lessons/now", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLessonRoutes(t *testing.T) {
	s := newTestServer(t)
	var called []string
	s.lessons.summary = func(ctx context.Context, learnerID string, page domain.PageQuery) (*lesson.PlanSummary, error) {
		called = append(called, "summary")
		assert.Equal(t, domain.PageQuery{PageNo: 1, PageSize: domain.DefaultPageSize}, page)
		return &lesson.PlanSummary{WeeklyTargetTotal: 8, Items: domain.NewPage[*lesson.PlanItem](0, page.PageSize, nil)}, nil
	}
	s.lessons.byCourse = func(ctx context.Context, learnerID string, courseID int64) (*lesson.LessonModel, error) {
		called = append(called, "byCourse")
		if courseID == 404 {
			return nil, nil
		}
		return &lesson.LessonModel{ID: "l12", CourseID: courseID}, nil
	}
	s.lessons.valid = func(ctx context.Context, learnerID string, courseID int64) (string, error) {
		called = append(called, "valid")
		return "l12", nil
	}
	s.lessons.remove = func(ctx context.Context, learnerID string, courseID int64) error {
		called = append(called, "remove")
		assert.Equal(t, int64(12), courseID)
		return nil
	}
	s.lessons.list = func(ctx context.Context, learnerID string, page domain.PageQuery) (*domain.Page[*lesson.LessonItem], error) {
		called = append(called, "list")
		assert.Equal(t, domain.PageQuery{PageNo: 2, PageSize: 5}, page)
		return domain.NewPage[*lesson.LessonItem](0, page.PageSize, nil), nil
	}
	s.lessons.add = func(ctx context.Context, learnerID string, courseIDs []int64) (int, error) {
		called = append(called, "add")
		assert.Equal(t, []int64{1, 2}, courseIDs)
		return 2, nil
	}
	s.lessons.plan = func(ctx context.Context, learnerID string, courseID int64, weekFreq int) error {
		called = append(called, "plan")
		assert.Equal(t, int64(1), courseID)
		assert.Equal(t, 3, weekFreq)
		return nil
	}

	rec := s.request(http.MethodGet, "/api/v1/lessons/plans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"weekly_target_total":8`)

	rec = s.request(http.MethodGet, "/api/v1/lessons/12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"l12"`)

	rec = s.request(http.MethodGet, "/api/v1/lessons/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/lessons/12/valid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"lesson_id":"l12"}`, rec.Body.String())

	rec = s.request(http.MethodDelete, "/api/v1/lessons/12", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/lessons/page?page_no=2&page_size=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(http.MethodPost, "/api/v1/lessons", `{"course_ids":[1,2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"created":2}`, rec.Body.String())

	rec = s.request(http.MethodPost, "/api/v1/lessons/plans", `{"course_id":1,"week_freq":3}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"summary", "byCourse", "byCourse", "valid", "remove", "list", "add", "plan"}, called)
}

func TestLessonRoutes_badParams(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/lessons/abc",
		"/api/v1/lessons/0/valid",
		"/api/v1/learning-records/course/-1",
		"/api/v1/lessons/page?page_size=1000",
		"/api/v1/lessons/page?page_no=x",
	} {
		rec := s.request(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	rec := s.request(http.MethodPost, "/api/v1/lessons", `{"course_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.request(http.MethodPost, "/api/v1/lessons/plans", `{"course_id":1,"week_freq":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthProbe(t *testing.T) {
	s := newTestServer(t)
	rec := s.request(http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Del(echo.HeaderAuthorization)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressStream(t *testing.T) {
	s := newTestServer(t)
	s.records.submit = func(ctx context.Context, learnerID string, event *record.ProgressEvent) (bool, error) {
		assert.Equal(t, testLearner, learnerID)
		if event.SectionID == 9 {
			return false, domain.ErrLessonNotFound
		}
		return event.SectionType == record.SectionExam, nil
	}
	server := httptest.NewServer(s.app)
	defer server.Close()

	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer "+s.token)
	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/learning-records/stream", header)
	require.NoError(t, err)
	defer conn.Close()

	type ack struct {
		SectionID     int64      `json:"section_id"`
		NewlyFinished bool       `json:"newly_finished"`
		Error         *errorBody `json:"error"`
	}
	tests := []struct {
		event     *record.ProgressEvent
		newly     bool
		errorCode int
	}{
		{&record.ProgressEvent{LessonID: "l1", SectionID: 1, SectionType: record.SectionExam}, true, 0},
		{&record.ProgressEvent{LessonID: "l1", SectionID: 2, SectionType: record.SectionVideo, Moment: 3, Duration: 10}, false, 0},
		{&record.ProgressEvent{LessonID: "l1", SectionID: 3, SectionType: 7}, false, http.StatusBadRequest},
		{&record.ProgressEvent{LessonID: "l1", SectionID: 9, SectionType: record.SectionExam}, false, http.StatusNotFound},
	}
	for _, tt := range tests {
		require.NoError(t, conn.WriteJSON(tt.event))
		got := new(ack)
		require.NoError(t, conn.ReadJSON(got))
		assert.Equal(t, tt.event.SectionID, got.SectionID)
		assert.Equal(t, tt.newly, got.NewlyFinished)
		if tt.errorCode == 0 {
			assert.Nil(t, got.Error)
		} else {
			require.NotNil(t, got.Error)
			assert.Equal(t, tt.errorCode, got.Error.Code)
		}
	}

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/learning-records/stream", nil)
	assert.Error(t, err)
}
