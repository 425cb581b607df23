package record

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pot-code/learning-service/internal/catalogue/cataloguetest"
	"github.com/pot-code/learning-service/internal/infrastructure/dbtest"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/uuid"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/stretchr/testify/require"
)

const testLearner = "learner-1"

type fixture struct {
	conn    driver.ITransactionalDB
	lessons *lesson.LessonSQL
	records *RecordSQL
	gateway *cataloguetest.Gateway
	uc      *RecordUseCaseImpl
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	f := &fixture{
		conn:    conn,
		lessons: lesson.NewLessonRepository(conn),
		records: NewRecordRepository(conn),
		gateway: cataloguetest.New(),
		clock:   time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	f.uc = NewRecordUseCase(f.records, f.lessons, f.gateway,
		driver.NewTransactor(conn, nil), uuid.NewNanoIDGenerator(21), true)
	f.uc.now = func() time.Time { return f.clock }
	return f
}

// enroll create a lesson of learnerID for a course with sectionCount sections
func (f *fixture) enroll(t *testing.T, learnerID string, courseID int64, sectionCount int) *lesson.LessonModel {
	t.Helper()
	f.gateway.AddCourse(courseID, fmt.Sprintf("course %d", courseID), sectionCount, 0)
	l := &lesson.LessonModel{
		ID:         fmt.Sprintf("lesson-%s-%d", learnerID, courseID),
		LearnerID:  learnerID,
		CourseID:   courseID,
		CreateTime: f.clock,
		UpdateTime: f.clock,
	}
	require.NoError(t, f.lessons.Insert(context.Background(), l))
	return l
}

func (f *fixture) lesson(t *testing.T, id string) *lesson.LessonModel {
	t.Helper()
	l, err := f.lessons.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func (f *fixture) record(t *testing.T, lessonID string, sectionID int64) *RecordModel {
	t.Helper()
	r, err := f.records.FindBySection(context.Background(), testLearner, lessonID, sectionID)
	require.NoError(t, err)
	return r
}

func (f *fixture) tick() {
	f.clock = f.clock.Add(time.Minute)
}

func videoEvent(lessonID string, sectionID int64, moment, duration int) *ProgressEvent {
	return &ProgressEvent{
		LessonID:    lessonID,
		SectionID:   sectionID,
		SectionType: SectionVideo,
		Moment:      moment,
		Duration:    duration,
	}
}

func examEvent(lessonID string, sectionID int64) *ProgressEvent {
	return &ProgressEvent{
		LessonID:    lessonID,
		SectionID:   sectionID,
		SectionType: SectionExam,
	}
}
