// Package record ingests section progress and detects first completions
package record

import (
	"context"
	"fmt"
	"time"
)

// SectionType kind of course section
type SectionType int

// section types
const (
	SectionVideo SectionType = 1
	SectionExam  SectionType = 2
)

func (st SectionType) String() string {
	switch st {
	case SectionVideo:
		return "video"
	case SectionExam:
		return "exam"
	}
	return fmt.Sprintf("SectionType(%d)", int(st))
}

// Valid reports whether st is a known section type
func (st SectionType) Valid() bool {
	return st == SectionVideo || st == SectionExam
}

// RecordModel progress of one learner on one section of a lesson
type RecordModel struct {
	ID          string      `json:"id"`
	LearnerID   string      `json:"-"`
	LessonID    string      `json:"lesson_id"`
	SectionID   int64       `json:"section_id"`
	SectionType SectionType `json:"section_type"`
	Moment      int         `json:"moment"`   // playback position in seconds
	Duration    int         `json:"duration"` // video length in seconds
	Finished    bool        `json:"finished"`
	FinishTime  *time.Time  `json:"finish_time,omitempty"`
	CreateTime  time.Time   `json:"-"`
	UpdateTime  time.Time   `json:"-"`
}

// ProgressEvent a progress report for one section
type ProgressEvent struct {
	LessonID    string      `json:"lesson_id" validate:"required"`
	SectionID   int64       `json:"section_id" validate:"required,min=1"`
	SectionType SectionType `json:"section_type" validate:"oneof=1 2"`
	Moment      int         `json:"moment" validate:"min=0"`
	Duration    int         `json:"duration" validate:"min=0"`
	CommitTime  time.Time   `json:"commit_time"` // zero means the time the event is processed
}

// CourseProgress records of a learner's lesson
type CourseProgress struct {
	LessonID        string         `json:"lesson_id"`
	LatestSectionID *int64         `json:"latest_section_id,omitempty"`
	Records         []*RecordModel `json:"records"`
}

// RecordRepository record persistence, lookups return nil, nil when nothing matches
type RecordRepository interface {
	FindBySection(ctx context.Context, learnerID, lessonID string, sectionID int64) (*RecordModel, error)
	ListByLesson(ctx context.Context, learnerID, lessonID string) ([]*RecordModel, error)
	// Insert fails with domain.ErrConflict when the section already has a record
	Insert(ctx context.Context, record *RecordModel) error
	// MarkFinished finish an unfinished record, false if it was finished already
	MarkFinished(ctx context.Context, id string, moment int, at time.Time) (bool, error)
	// UpdatePosition refresh the playback position, finished records are only
	// touched when includeFinished is set
	UpdatePosition(ctx context.Context, id string, moment, duration int, at time.Time, includeFinished bool) error
	CountFinishedBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error)
	CountFinishedByLesson(ctx context.Context, learnerID string, lessonIDs []string, from, to time.Time) (map[string]int, error)
	DeleteByLesson(ctx context.Context, lessonID string) error
}

// RecordUseCase progress operations exposed to transports
type RecordUseCase interface {
	// SubmitProgress store the event and report whether it finished the section for the first time
	SubmitProgress(ctx context.Context, learnerID string, event *ProgressEvent) (bool, error)
	GetProgressForCourse(ctx context.Context, learnerID string, courseID int64) (*CourseProgress, error)
}
