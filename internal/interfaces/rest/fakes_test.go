package rest

import (
	"context"

	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/pot-code/learning-service/internal/record"
)

type mockRecordUseCase struct {
	submit   func(ctx context.Context, learnerID string, event *record.ProgressEvent) (bool, error)
	progress func(ctx context.Context, learnerID string, courseID int64) (*record.CourseProgress, error)
}

func (m *mockRecordUseCase) SubmitProgress(ctx context.Context, learnerID string, event *record.ProgressEvent) (bool, error) {
	return m.submit(ctx, learnerID, event)
}

func (m *mockRecordUseCase) GetProgressForCourse(ctx context.Context, learnerID string, courseID int64) (*record.CourseProgress, error) {
	return m.progress(ctx, learnerID, courseID)
}

type mockLessonUseCase struct {
	add      func(ctx context.Context, learnerID string, courseIDs []int64) (int, error)
	remove   func(ctx context.Context, learnerID string, courseID int64) error
	valid    func(ctx context.Context, learnerID string, courseID int64) (string, error)
	byCourse func(ctx context.Context, learnerID string, courseID int64) (*lesson.LessonModel, error)
	current  func(ctx context.Context, learnerID string) (*lesson.CurrentLesson, error)
	list     func(ctx context.Context, learnerID string, page domain.PageQuery) (*domain.Page[*lesson.LessonItem], error)
	plan     func(ctx context.Context, learnerID string, courseID int64, weekFreq int) error
	summary  func(ctx context.Context, learnerID string, page domain.PageQuery) (*lesson.PlanSummary, error)
}

func (m *mockLessonUseCase) AddUserLessons(ctx context.Context, learnerID string, courseIDs []int64) (int, error) {
	return m.add(ctx, learnerID, courseIDs)
}

func (m *mockLessonUseCase) DeleteLesson(ctx context.Context, learnerID string, courseID int64) error {
	return m.remove(ctx, learnerID, courseID)
}

func (m *mockLessonUseCase) IsLessonValid(ctx context.Context, learnerID string, courseID int64) (string, error) {
	return m.valid(ctx, learnerID, courseID)
}

func (m *mockLessonUseCase) GetLessonByCourse(ctx context.Context, learnerID string, courseID int64) (*lesson.LessonModel, error) {
	return m.byCourse(ctx, learnerID, courseID)
}

func (m *mockLessonUseCase) GetCurrentLesson(ctx context.Context, learnerID string) (*lesson.CurrentLesson, error) {
	return m.current(ctx, learnerID)
}

func (m *mockLessonUseCase) ListLessons(ctx context.Context, learnerID string, page domain.PageQuery) (*domain.Page[*lesson.LessonItem], error) {
	return m.list(ctx, learnerID, page)
}

func (m *mockLessonUseCase) CreatePlan(ctx context.Context, learnerID string, courseID int64, weekFreq int) error {
	return m.plan(ctx, learnerID, courseID, weekFreq)
}

func (m *mockLessonUseCase) GetWeeklyPlanSummary(ctx context.Context, learnerID string, page domain.PageQuery) (*lesson.PlanSummary, error) {
	return m.summary(ctx, learnerID, page)
}
