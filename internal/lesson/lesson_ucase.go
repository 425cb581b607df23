package lesson

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pot-code/learning-service/internal/catalogue"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"github.com/pot-code/learning-service/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LessonUseCaseImpl ...
type LessonUseCaseImpl struct {
	LessonRepository LessonRepository
	RecordStore      RecordStore
	Gateway          catalogue.Gateway
	Transactor       driver.Transactor
	IDGenerator      uuid.Generator
	location         *time.Location
	now              func() time.Time
}

var _ LessonUseCase = &LessonUseCaseImpl{}

// NewLessonUseCase weekly windows are computed in location
func NewLessonUseCase(
	LessonRepository LessonRepository,
	RecordStore RecordStore,
	Gateway catalogue.Gateway,
	Transactor driver.Transactor,
	IDGenerator uuid.Generator,
	location *time.Location,
) *LessonUseCaseImpl {
	if location == nil {
		location = time.UTC
	}
	return &LessonUseCaseImpl{
		LessonRepository: LessonRepository,
		RecordStore:      RecordStore,
		Gateway:          Gateway,
		Transactor:       Transactor,
		IDGenerator:      IDGenerator,
		location:         location,
		now:              time.Now,
	}
}

// AddUserLessons enroll the learner in courses, courses the learner already has or
// the catalogue does not know are skipped. It returns the number of lessons created
func (lu *LessonUseCaseImpl) AddUserLessons(ctx context.Context, learnerID string, courseIDs []int64) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.AddUserLessons", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return 0, domain.ErrMissingLearner
	}
	courseIDs = uniqueIDs(courseIDs)
	if len(courseIDs) == 0 {
		return 0, fmt.Errorf("course ids are required: %w", domain.ErrValidation)
	}

	infos, err := lu.Gateway.GetSimpleCourseInfo(ctx, courseIDs)
	if err != nil {
		return 0, err
	}

	logger := logging.ExtractLoggerFromContext(ctx)
	now := lu.now().UTC()
	created := 0
	for _, courseID := range courseIDs {
		info, ok := infos[courseID]
		if !ok {
			logger.Warn("course not found in catalogue", zap.Int64("learning.course.id", courseID))
			continue
		}
		id, err := lu.IDGenerator.Generate()
		if err != nil {
			return created, fmt.Errorf("generate lesson id: %w", err)
		}
		lesson := &LessonModel{
			ID:         id,
			LearnerID:  learnerID,
			CourseID:   courseID,
			Status:     NotStarted,
			PlanStatus: NoPlan,
			CreateTime: now,
			UpdateTime: now,
		}
		if info.ValidDurationMonths > 0 {
			expire := now.AddDate(0, info.ValidDurationMonths, 0)
			lesson.ExpireTime = &expire
		}
		if err := lu.LessonRepository.Insert(ctx, lesson); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, err
		}
		created++
		logger.Info("lesson created", zap.String("learning.lesson.id", id), zap.Int64("learning.course.id", courseID))
	}
	return created, nil
}

// DeleteLesson remove the lesson of a course together with its progress records
func (lu *LessonUseCaseImpl) DeleteLesson(ctx context.Context, learnerID string, courseID int64) error {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.DeleteLesson", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return domain.ErrMissingLearner
	}
	return lu.Transactor(ctx, func(ctx context.Context) error {
		lesson, err := lu.LessonRepository.FindByLearnerAndCourse(ctx, learnerID, courseID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return domain.ErrLessonNotFound
		}
		if err := lu.RecordStore.DeleteByLesson(ctx, lesson.ID); err != nil {
			return err
		}
		return lu.LessonRepository.Delete(ctx, lesson.ID)
	})
}

// IsLessonValid returns the lesson id when the learner holds an unexpired lesson for
// the course, otherwise an empty string
func (lu *LessonUseCaseImpl) IsLessonValid(ctx context.Context, learnerID string, courseID int64) (string, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.IsLessonValid", "service")
	defer apmSpan.End()

	lesson, err := lu.GetLessonByCourse(ctx, learnerID, courseID)
	if err != nil || lesson == nil {
		return "", err
	}
	if lesson.Expired(lu.now()) {
		return "", nil
	}
	return lesson.ID, nil
}

// GetLessonByCourse returns nil if the learner is not enrolled
func (lu *LessonUseCaseImpl) GetLessonByCourse(ctx context.Context, learnerID string, courseID int64) (*LessonModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.GetLessonByCourse", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	return lu.LessonRepository.FindByLearnerAndCourse(ctx, learnerID, courseID)
}

// GetCurrentLesson returns the in progress lesson studied last, nil if there is none
func (lu *LessonUseCaseImpl) GetCurrentLesson(ctx context.Context, learnerID string) (*CurrentLesson, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.GetCurrentLesson", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	lesson, err := lu.LessonRepository.FindLatestInProgress(ctx, learnerID)
	if err != nil || lesson == nil {
		return nil, err
	}

	var (
		course   *catalogue.CourseFullInfo
		count    int64
		sections []*catalogue.SectionInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		course, err = lu.Gateway.GetCourseFullInfo(gctx, lesson.CourseID)
		return
	})
	g.Go(func() (err error) {
		count, err = lu.LessonRepository.CountByLearner(gctx, learnerID)
		return
	})
	if lesson.LatestSectionID != nil {
		g.Go(func() (err error) {
			sections, err = lu.Gateway.BatchGetSectionInfo(gctx, []int64{*lesson.LatestSectionID})
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current := &CurrentLesson{
		LessonItem: LessonItem{
			LessonModel:  lesson,
			CourseName:   course.Name,
			CourseCover:  course.CoverURL,
			SectionCount: course.SectionCount,
		},
		LessonCount: count,
	}
	if len(sections) > 0 {
		current.LatestSectionName = sections[0].Name
		current.LatestSectionIndex = sections[0].Index
	}
	return current, nil
}

// ListLessons page through the learner's lessons, most recently studied first
func (lu *LessonUseCaseImpl) ListLessons(ctx context.Context, learnerID string, page domain.PageQuery) (*domain.Page[*LessonItem], error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.ListLessons", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	page = page.Normalize()
	lessons, total, err := lu.LessonRepository.PageByLearner(ctx, learnerID, page)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return domain.NewPage[*LessonItem](total, page.PageSize, nil), nil
	}

	courseIDs := make([]int64, len(lessons))
	for i, l := range lessons {
		courseIDs[i] = l.CourseID
	}
	infos, err := lu.Gateway.GetSimpleCourseInfo(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*LessonItem, len(lessons))
	for i, l := range lessons {
		item := &LessonItem{LessonModel: l}
		if info, ok := infos[l.CourseID]; ok {
			item.CourseName = info.Name
			item.CourseCover = info.CoverURL
			item.SectionCount = info.SectionCount
		}
		items[i] = item
	}
	return domain.NewPage(total, page.PageSize, items), nil
}

// CreatePlan set the weekly target of the learner's lesson for a course and activate the plan
func (lu *LessonUseCaseImpl) CreatePlan(ctx context.Context, learnerID string, courseID int64, weekFreq int) error {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.CreatePlan", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return domain.ErrMissingLearner
	}
	if weekFreq < 0 {
		return fmt.Errorf("week frequency must not be negative: %w", domain.ErrValidation)
	}

	lesson, err := lu.LessonRepository.FindByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		return err
	}
	if lesson == nil {
		return domain.ErrLessonNotFound
	}
	if err := lu.LessonRepository.UpdatePlan(ctx, lesson.ID, weekFreq, lu.now()); err != nil {
		return err
	}
	logging.ExtractLoggerFromContext(ctx).Info("plan activated",
		zap.String("learning.lesson.id", lesson.ID),
		zap.Int("learning.plan.week_freq", weekFreq))
	return nil
}

// GetWeeklyPlanSummary compare the weekly targets of active plans with the sections
// finished in the current week
func (lu *LessonUseCaseImpl) GetWeeklyPlanSummary(ctx context.Context, learnerID string, page domain.PageQuery) (*PlanSummary, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.GetWeeklyPlanSummary", "service")
	defer apmSpan.End()

	if learnerID == "" {
		return nil, domain.ErrMissingLearner
	}
	page = page.Normalize()
	start, end := WeekWindow(lu.now().In(lu.location))

	var (
		target    int
		completed int
		lessons   []*LessonModel
		total     int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		target, err = lu.LessonRepository.SumActiveWeeklyTarget(gctx, learnerID)
		return
	})
	g.Go(func() (err error) {
		completed, err = lu.RecordStore.CountFinishedBetween(gctx, learnerID, start, end)
		return
	})
	g.Go(func() (err error) {
		lessons, total, err = lu.LessonRepository.PageActivePlans(gctx, learnerID, page)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &PlanSummary{
		WeeklyTargetTotal:    target,
		WeeklyCompletedTotal: completed,
		WeekStart:            start,
		WeekEnd:              end,
		Items:                domain.NewPage[*PlanItem](total, page.PageSize, nil),
	}
	if len(lessons) == 0 {
		return summary, nil
	}

	lessonIDs := make([]string, len(lessons))
	courseIDs := make([]int64, len(lessons))
	for i, l := range lessons {
		lessonIDs[i] = l.ID
		courseIDs[i] = l.CourseID
	}
	var (
		counts map[string]int
		infos  map[int64]*catalogue.SimpleCourseInfo
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = lu.RecordStore.CountFinishedByLesson(gctx, learnerID, lessonIDs, start, end)
		return
	})
	g.Go(func() (err error) {
		infos, err = lu.Gateway.GetSimpleCourseInfo(gctx, courseIDs)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]*PlanItem, len(lessons))
	for i, l := range lessons {
		item := &PlanItem{
			LessonID:              l.ID,
			CourseID:              l.CourseID,
			WeekFreq:              l.WeekFreq,
			WeeklyLearnedSections: counts[l.ID],
			LearnedSections:       l.LearnedSections,
			LatestLearnTime:       l.LatestLearnTime,
		}
		if info, ok := infos[l.CourseID]; ok {
			item.CourseName = info.Name
			item.SectionCount = info.SectionCount
		}
		items[i] = item
	}
	summary.Items = domain.NewPage(total, page.PageSize, items)
	return summary, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
