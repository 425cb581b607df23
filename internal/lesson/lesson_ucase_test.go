package lesson_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pot-code/learning-service/internal/catalogue/cataloguetest"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/dbtest"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/uuid"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/pot-code/learning-service/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const learner = "learner-1"

// the study week of the tests is computed at UTC+8
var beijing = time.FixedZone("UTC+8", 8*3600)

type fixture struct {
	lessons *lesson.LessonSQL
	records *record.RecordSQL
	gateway *cataloguetest.Gateway
	uc      *lesson.LessonUseCaseImpl
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	f := &fixture{
		lessons: lesson.NewLessonRepository(conn),
		records: record.NewRecordRepository(conn),
		gateway: cataloguetest.New(),
		// Wednesday 18:00 at UTC+8
		clock: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	f.uc = lesson.NewLessonUseCase(f.lessons, f.records, f.gateway,
		driver.NewTransactor(conn, nil), uuid.NewNanoIDGenerator(21), beijing)
	f.uc.SetClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) enroll(t *testing.T, courseIDs ...int64) []*lesson.LessonModel {
	t.Helper()
	ctx := context.Background()
	for _, id := range courseIDs {
		f.gateway.AddCourse(id, fmt.Sprintf("course %d", id), 10, 0)
	}
	_, err := f.uc.AddUserLessons(ctx, learner, courseIDs)
	require.NoError(t, err)

	result := make([]*lesson.LessonModel, len(courseIDs))
	for i, id := range courseIDs {
		l, err := f.lessons.FindByLearnerAndCourse(ctx, learner, id)
		require.NoError(t, err)
		require.NotNil(t, l)
		result[i] = l
	}
	return result
}

// finish store a finished record of the learner for a section of l
func (f *fixture) finish(t *testing.T, l *lesson.LessonModel, sectionID int64, at time.Time) {
	t.Helper()
	at = at.UTC()
	require.NoError(t, f.records.Insert(context.Background(), &record.RecordModel{
		ID:          fmt.Sprintf("%s-%d", l.ID, sectionID),
		LearnerID:   l.LearnerID,
		LessonID:    l.ID,
		SectionID:   sectionID,
		SectionType: record.SectionExam,
		Finished:    true,
		FinishTime:  &at,
		CreateTime:  at,
		UpdateTime:  at,
	}))
}

func TestAddUserLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.AddCourse(1, "limited", 10, 6).AddCourse(2, "forever", 5, 0)

	created, err := f.uc.AddUserLessons(ctx, learner, []int64{1, 2, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	limited, err := f.lessons.FindByLearnerAndCourse(ctx, learner, 1)
	require.NoError(t, err)
	require.NotNil(t, limited)
	assert.Equal(t, lesson.NotStarted, limited.Status)
	assert.Equal(t, lesson.NoPlan, limited.PlanStatus)
	require.NotNil(t, limited.ExpireTime)
	assert.True(t, f.clock.AddDate(0, 6, 0).Equal(*limited.ExpireTime))

	forever, err := f.lessons.FindByLearnerAndCourse(ctx, learner, 2)
	require.NoError(t, err)
	require.NotNil(t, forever)
	assert.Nil(t, forever.ExpireTime)

	unknown, err := f.lessons.FindByLearnerAndCourse(ctx, learner, 99)
	require.NoError(t, err)
	assert.Nil(t, unknown)

	created, err = f.uc.AddUserLessons(ctx, learner, []int64{1})
	require.NoError(t, err)
	assert.Zero(t, created)

	_, err = f.uc.AddUserLessons(ctx, learner, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.uc.AddUserLessons(ctx, "", []int64{1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddUserLessons_gatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.Fail(fmt.Errorf("timeout: %w", domain.ErrDependency))

	_, err := f.uc.AddUserLessons(context.Background(), learner, []int64{1})
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestDeleteLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lessons := f.enroll(t, 1, 2)
	f.finish(t, lessons[0], 1, f.clock)
	f.finish(t, lessons[0], 2, f.clock)
	f.finish(t, lessons[1], 1, f.clock)

	require.NoError(t, f.uc.DeleteLesson(ctx, learner, 1))

	gone, err := f.lessons.FindByID(ctx, lessons[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	records, err := f.records.ListByLesson(ctx, learner, lessons[0].ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	records, err = f.records.ListByLesson(ctx, learner, lessons[1].ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.ErrorIs(t, f.uc.DeleteLesson(ctx, learner, 1), domain.ErrLessonNotFound)
}

func TestIsLessonValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.AddCourse(1, "limited", 10, 1)
	_, err := f.uc.AddUserLessons(ctx, learner, []int64{1})
	require.NoError(t, err)

	id, err := f.uc.IsLessonValid(ctx, learner, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	f.clock = f.clock.AddDate(0, 2, 0)
	id, err = f.uc.IsLessonValid(ctx, learner, 1)
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = f.uc.IsLessonValid(ctx, learner, 2)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGetCurrentLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	current, err := f.uc.GetCurrentLesson(ctx, learner)
	require.NoError(t, err)
	assert.Nil(t, current)

	lessons := f.enroll(t, 1, 2, 3)
	f.gateway.AddSection(21, "variables", 4)
	require.NoError(t, f.lessons.ApplyFirstCompletion(ctx, lessons[0].ID, 11, f.clock, 10))
	require.NoError(t, f.lessons.ApplyFirstCompletion(ctx, lessons[1].ID, 21, f.clock.Add(time.Hour), 10))

	current, err = f.uc.GetCurrentLesson(ctx, learner)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, lessons[1].ID, current.ID)
	assert.Equal(t, "course 2", current.CourseName)
	assert.Equal(t, 10, current.SectionCount)
	assert.Equal(t, int64(3), current.LessonCount)
	assert.Equal(t, "variables", current.LatestSectionName)
	assert.Equal(t, 4, current.LatestSectionIndex)
}

func TestListLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.uc.ListLessons(ctx, learner, domain.PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.List)
	assert.Zero(t, f.gateway.Calls("GetSimpleCourseInfo"))

	lessons := f.enroll(t, 1, 2, 3)
	require.NoError(t, f.lessons.ApplyFirstCompletion(ctx, lessons[2].ID, 1, f.clock, 10))

	page, err := f.uc.ListLessons(ctx, learner, domain.PageQuery{PageNo: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.Pages)
	require.Len(t, page.List, 2)
	assert.Equal(t, lessons[2].ID, page.List[0].ID)
	assert.Equal(t, "course 3", page.List[0].CourseName)
	assert.Equal(t, 1, page.List[0].LearnedSections)
}

func TestCreatePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lessons := f.enroll(t, 1)

	assert.ErrorIs(t, f.uc.CreatePlan(ctx, learner, 1, -1), domain.ErrValidation)
	assert.ErrorIs(t, f.uc.CreatePlan(ctx, learner, 2, 3), domain.ErrLessonNotFound)
	require.NoError(t, f.uc.CreatePlan(ctx, learner, 1, 3))

	got, err := f.lessons.FindByID(ctx, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, lesson.PlanActive, got.PlanStatus)
	assert.Equal(t, 3, got.WeekFreq)
}

func TestGetWeeklyPlanSummary_noPlans(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, 1)
	calls := f.gateway.Calls("GetSimpleCourseInfo")

	summary, err := f.uc.GetWeeklyPlanSummary(context.Background(), learner, domain.PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, summary.WeeklyTargetTotal)
	assert.Zero(t, summary.WeeklyCompletedTotal)
	assert.Zero(t, summary.Items.Total)
	assert.Empty(t, summary.Items.List)
	assert.Equal(t, calls, f.gateway.Calls("GetSimpleCourseInfo"))
}

func TestGetWeeklyPlanSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lessons := f.enroll(t, 1, 2, 3)
	require.NoError(t, f.uc.CreatePlan(ctx, learner, 1, 3))
	require.NoError(t, f.uc.CreatePlan(ctx, learner, 2, 5))

	weekStart := time.Date(2024, 1, 1, 0, 0, 0, 0, beijing)
	weekEnd := time.Date(2024, 1, 8, 0, 0, 0, 0, beijing)
	f.finish(t, lessons[0], 1, weekStart)
	f.finish(t, lessons[0], 2, weekEnd.Add(-time.Second))
	f.finish(t, lessons[0], 3, weekEnd)
	f.finish(t, lessons[0], 4, weekStart.Add(-time.Second))
	f.finish(t, lessons[1], 1, f.clock)
	// not part of a plan but finished this week
	f.finish(t, lessons[2], 1, f.clock)

	summary, err := f.uc.GetWeeklyPlanSummary(ctx, learner, domain.PageQuery{})
	require.NoError(t, err)
	assert.True(t, weekStart.Equal(summary.WeekStart))
	assert.True(t, weekEnd.Equal(summary.WeekEnd))
	assert.Equal(t, 8, summary.WeeklyTargetTotal)
	assert.Equal(t, 4, summary.WeeklyCompletedTotal)
	assert.Equal(t, int64(2), summary.Items.Total)

	byLesson := make(map[string]*lesson.PlanItem)
	for _, item := range summary.Items.List {
		byLesson[item.LessonID] = item
	}
	require.Contains(t, byLesson, lessons[0].ID)
	require.Contains(t, byLesson, lessons[1].ID)
	assert.Equal(t, 2, byLesson[lessons[0].ID].WeeklyLearnedSections)
	assert.Equal(t, 3, byLesson[lessons[0].ID].WeekFreq)
	assert.Equal(t, "course 1", byLesson[lessons[0].ID].CourseName)
	assert.Equal(t, 1, byLesson[lessons[1].ID].WeeklyLearnedSections)
	assert.Equal(t, 10, byLesson[lessons[1].ID].SectionCount)
}
