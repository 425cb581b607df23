package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/pot-code/learning-service/internal/domain"
)

// LessonStatus lifecycle of a lesson, it only moves forward
type LessonStatus int

// lesson lifecycle
const (
	NotStarted LessonStatus = iota
	InProgress
	Finished
)

var lessonStatusNames = [...]string{"not_started", "in_progress", "finished"}

func (s LessonStatus) String() string {
	if s < 0 || int(s) >= len(lessonStatusNames) {
		return fmt.Sprintf("LessonStatus(%d)", int(s))
	}
	return lessonStatusNames[s]
}

// MarshalText encode as name
func (s LessonStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlanStatus whether the learner set a weekly target
type PlanStatus int

// plan status
const (
	NoPlan PlanStatus = iota
	PlanActive
)

func (s PlanStatus) String() string {
	if s == PlanActive {
		return "active"
	}
	return "none"
}

// MarshalText encode as name
func (s PlanStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LessonModel a learner's enrollment in one course
type LessonModel struct {
	ID              string       `json:"id"`
	LearnerID       string       `json:"-"`
	CourseID        int64        `json:"course_id"`
	Status          LessonStatus `json:"status"`
	LearnedSections int          `json:"learned_sections"`
	LatestSectionID *int64       `json:"latest_section_id,omitempty"`
	LatestLearnTime *time.Time   `json:"latest_learn_time,omitempty"`
	ExpireTime      *time.Time   `json:"expire_time,omitempty"`
	WeekFreq        int          `json:"week_freq"`
	PlanStatus      PlanStatus   `json:"plan_status"`
	CreateTime      time.Time    `json:"create_time"`
	UpdateTime      time.Time    `json:"-"`
}

// Expired reports whether the enrollment has lapsed at now
func (l *LessonModel) Expired(now time.Time) bool {
	return l.ExpireTime != nil && now.After(*l.ExpireTime)
}

// PlanItem one lesson in the weekly plan summary
type PlanItem struct {
	LessonID              string     `json:"lesson_id"`
	CourseID              int64      `json:"course_id"`
	CourseName            string     `json:"course_name"`
	WeekFreq              int        `json:"week_freq"`
	WeeklyLearnedSections int        `json:"weekly_learned_sections"`
	LearnedSections       int        `json:"learned_sections"`
	SectionCount          int        `json:"section_count"`
	LatestLearnTime       *time.Time `json:"latest_learn_time,omitempty"`
}

// PlanSummary weekly target against sections finished this week
type PlanSummary struct {
	WeeklyTargetTotal    int                     `json:"weekly_target_total"`
	WeeklyCompletedTotal int                     `json:"weekly_completed_total"`
	WeekStart            time.Time               `json:"week_start"`
	WeekEnd              time.Time               `json:"week_end"` // exclusive
	Items                *domain.Page[*PlanItem] `json:"items"`
}

// LessonItem lesson with course display data
type LessonItem struct {
	*LessonModel
	CourseName   string `json:"course_name"`
	CourseCover  string `json:"course_cover"`
	SectionCount int    `json:"section_count"`
}

// CurrentLesson the lesson the learner studied most recently
type CurrentLesson struct {
	LessonItem
	LessonCount        int64  `json:"lesson_count"`
	LatestSectionName  string `json:"latest_section_name,omitempty"`
	LatestSectionIndex int    `json:"latest_section_index,omitempty"`
}

// LessonRepository lesson persistence, lookups return nil, nil when nothing matches
type LessonRepository interface {
	FindByID(ctx context.Context, id string) (*LessonModel, error)
	FindByLearnerAndCourse(ctx context.Context, learnerID string, courseID int64) (*LessonModel, error)
	FindLatestInProgress(ctx context.Context, learnerID string) (*LessonModel, error)
	CountByLearner(ctx context.Context, learnerID string) (int64, error)
	PageByLearner(ctx context.Context, learnerID string, page domain.PageQuery) ([]*LessonModel, int64, error)
	PageActivePlans(ctx context.Context, learnerID string, page domain.PageQuery) ([]*LessonModel, int64, error)
	SumActiveWeeklyTarget(ctx context.Context, learnerID string) (int, error)
	// Insert fails with domain.ErrConflict when the learner already has the course
	Insert(ctx context.Context, lesson *LessonModel) error
	// ApplyFirstCompletion count one more finished section and advance the lifecycle,
	// fails with domain.ErrAllSectionsCounted when the counter already reached
	// totalSections and with domain.ErrLessonVanished when no row matches
	ApplyFirstCompletion(ctx context.Context, lessonID string, sectionID int64, at time.Time, totalSections int) error
	UpdatePlan(ctx context.Context, lessonID string, weekFreq int, at time.Time) error
	Delete(ctx context.Context, lessonID string) error
}

// RecordStore progress record queries the lesson use case relies on
type RecordStore interface {
	CountFinishedBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error)
	CountFinishedByLesson(ctx context.Context, learnerID string, lessonIDs []string, from, to time.Time) (map[string]int, error)
	DeleteByLesson(ctx context.Context, lessonID string) error
}

// LessonUseCase lesson operations exposed to transports
type LessonUseCase interface {
	AddUserLessons(ctx context.Context, learnerID string, courseIDs []int64) (int, error)
	DeleteLesson(ctx context.Context, learnerID string, courseID int64) error
	IsLessonValid(ctx context.Context, learnerID string, courseID int64) (string, error)
	GetLessonByCourse(ctx context.Context, learnerID string, courseID int64) (*LessonModel, error)
	GetCurrentLesson(ctx context.Context, learnerID string) (*CurrentLesson, error)
	ListLessons(ctx context.Context, learnerID string, page domain.PageQuery) (*domain.Page[*LessonItem], error)
	CreatePlan(ctx context.Context, learnerID string, courseID int64, weekFreq int) error
	GetWeeklyPlanSummary(ctx context.Context, learnerID string, page domain.PageQuery) (*PlanSummary, error)
}
