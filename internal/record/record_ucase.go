package record

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"time"

	"github.com/pot-code/learning-service/internal/catalogue"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"github.com/pot-code/learning-service/internal/infrastructure/uuid"
	"github.com/pot-code/learning-service/internal/lesson"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// exported on /debug/vars
var stats = expvar.NewMap("learning_records")

// RecordUseCaseImpl ...
type RecordUseCaseImpl struct {
	RecordRepository RecordRepository
	LessonRepository lesson.LessonRepository
	Gateway          catalogue.Gateway
	Transactor       driver.Transactor
	IDGenerator      uuid.Generator
	// RefreshFinishedPosition keep updating the position of finished video sections,
	// finished state and finish time never change either way
	RefreshFinishedPosition bool
	now                     func() time.Time
}

var _ RecordUseCase = &RecordUseCaseImpl{}

// NewRecordUseCase ...
func NewRecordUseCase(
	RecordRepository RecordRepository,
	LessonRepository lesson.LessonRepository,
	Gateway catalogue.Gateway,
	Transactor driver.Transactor,
	IDGenerator uuid.Generator,
	RefreshFinishedPosition bool,
) *RecordUseCaseImpl {
	return &RecordUseCaseImpl{
		RecordRepository:        RecordRepository,
		LessonRepository:        LessonRepository,
		Gateway:                 Gateway,
		Transactor:              Transactor,
		IDGenerator:             IDGenerator,
		RefreshFinishedPosition: RefreshFinishedPosition,
		now:                     time.Now,
	}
}

// SubmitProgress store a progress event of the learner and, when it is the first
// completion of the section, count it on the lesson.
//
// The record write and the lesson update share one transaction. The first record
// of a section is only written once the catalogue lists the section in the course.
// A concurrent insert of the same section is resolved by running the submission
// again, which then takes the update path.
func (ru *RecordUseCaseImpl) SubmitProgress(ctx context.Context, learnerID string, event *ProgressEvent) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "RecordUseCaseImpl.SubmitProgress", "service")
	defer apmSpan.End()

	if err := validateEvent(learnerID, event); err != nil {
		return false, err
	}
	at := event.CommitTime
	if at.IsZero() {
		at = ru.now()
	}
	at = at.UTC()

	ls, err := ru.LessonRepository.FindByID(ctx, event.LessonID)
	if err != nil {
		return false, err
	}
	if ls == nil || ls.LearnerID != learnerID {
		return false, fmt.Errorf("lesson %s: %w", event.LessonID, domain.ErrLessonNotFound)
	}

	stats.Add("submitted", 1)
	newlyFinished, err := ru.submit(ctx, learnerID, ls, event, at)
	if errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrAllSectionsCounted) {
		stats.Add("conflicts", 1)
		newlyFinished, err = ru.submit(ctx, learnerID, ls, event, at)
	}
	if err != nil {
		return false, err
	}

	if newlyFinished {
		stats.Add("first_completions", 1)
		logging.ExtractLoggerFromContext(ctx).Info("section finished",
			zap.String("learning.lesson.id", ls.ID),
			zap.Int64("learning.section.id", event.SectionID),
			zap.Stringer("learning.section.type", event.SectionType))
	}
	return newlyFinished, nil
}

func (ru *RecordUseCaseImpl) submit(ctx context.Context, learnerID string, ls *lesson.LessonModel, event *ProgressEvent, at time.Time) (newlyFinished bool, err error) {
	err = ru.Transactor(ctx, func(ctx context.Context) error {
		newlyFinished = false
		existing, err := ru.RecordRepository.FindBySection(ctx, learnerID, ls.ID, event.SectionID)
		if err != nil {
			return err
		}

		decision := Decide(existing, event, ru.RefreshFinishedPosition)
		switch decision.Action {
		case ActionInsert:
			if err = ru.checkSection(ctx, ls.CourseID, event.SectionID); err != nil {
				return err
			}
			err = ru.insert(ctx, learnerID, event, at, decision.InsertFinished)
		case ActionMarkFinished:
			var applied bool
			applied, err = ru.RecordRepository.MarkFinished(ctx, existing.ID, event.Moment, at)
			if err == nil && !applied {
				// finished by a concurrent submission
				decision.NewlyFinished = false
				if ru.RefreshFinishedPosition && event.SectionType == SectionVideo {
					err = ru.RecordRepository.UpdatePosition(ctx, existing.ID, event.Moment, event.Duration, at, true)
				}
			}
		case ActionUpdatePosition:
			err = ru.RecordRepository.UpdatePosition(ctx, existing.ID, event.Moment, event.Duration, at, existing.Finished)
		}
		if err != nil || !decision.NewlyFinished {
			return err
		}

		total, err := ru.Gateway.GetSectionCount(ctx, ls.CourseID)
		if err != nil {
			return fmt.Errorf("section count of course %d: %w", ls.CourseID, err)
		}
		if err := ru.LessonRepository.ApplyFirstCompletion(ctx, ls.ID, event.SectionID, at, total); err != nil {
			return err
		}
		newlyFinished = true
		return nil
	})
	return
}

func (ru *RecordUseCaseImpl) checkSection(ctx context.Context, courseID, sectionID int64) error {
	course, err := ru.Gateway.GetCourseFullInfo(ctx, courseID)
	if err != nil {
		return fmt.Errorf("course %d: %w", courseID, err)
	}
	for _, id := range course.SectionIDs {
		if id == sectionID {
			return nil
		}
	}
	return fmt.Errorf("section %d of course %d: %w", sectionID, courseID, domain.ErrSectionNotInCourse)
}

func (ru *RecordUseCaseImpl) insert(ctx context.Context, learnerID string, event *ProgressEvent, at time.Time, finished bool) error {
	id, err := ru.IDGenerator.Generate()
	if err != nil {
		return fmt.Errorf("generate record id: %w", err)
	}
	record := &RecordModel{
		ID:          id,
		LearnerID:   learnerID,
		LessonID:    event.LessonID,
		SectionID:   event.SectionID,
		SectionType: event.SectionType,
		Moment:      event.Moment,
		Duration:    event.Duration,
		Finished:    finished,
		CreateTime:  at,
		UpdateTime:  at,
	}
	if finished {
		record.FinishTime = &at
	}
	return ru.RecordRepository.Insert(ctx, record)
}

// GetProgressForCourse returns the learner's records of a course, fails with
// domain.ErrLessonNotFound when the learner is not enrolled
func (ru *RecordUseCaseImpl) GetProgressForCourse(ctx context.Context, learnerID string, courseID int64) (*CourseProgress, error) {
	apmSpan, _ := apm.StartSpan(ctx, "RecordUseCaseImpl.GetProgressForCourse", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	ls, err := ru.LessonRepository.FindByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if ls == nil {
		return nil, fmt.Errorf("course %d: %w", courseID, domain.ErrLessonNotFound)
	}
	records, err := ru.RecordRepository.ListByLesson(ctx, learnerID, ls.ID)
	if err != nil {
		return nil, err
	}
	return &CourseProgress{
		LessonID:        ls.ID,
		LatestSectionID: ls.LatestSectionID,
		Records:         records,
	}, nil
}

func validateEvent(learnerID string, event *ProgressEvent) error {
	switch {
	case learnerID == "":
		return domain.ErrMissingLearner
	case event == nil:
		return fmt.Errorf("progress event is required: %w", domain.ErrValidation)
	case event.LessonID == "":
		return fmt.Errorf("lesson id is required: %w", domain.ErrValidation)
	case event.SectionID <= 0:
		return fmt.Errorf("section id must be positive: %w", domain.ErrValidation)
	case !event.SectionType.Valid():
		return domain.ErrInvalidSectionType
	case event.SectionType == SectionVideo && event.Duration <= 0:
		return fmt.Errorf("video duration must be positive: %w", domain.ErrValidation)
	case event.Moment < 0:
		return fmt.Errorf("moment must not be negative: %w", domain.ErrValidation)
	}
	return nil
}
