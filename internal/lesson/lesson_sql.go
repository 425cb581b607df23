package lesson

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
)

const lessonColumns = `id, learner_id, course_id, status, learned_sections, latest_section_id,
	latest_learn_time, expire_time, week_freq, plan_status, create_time, update_time`

// lessons with no activity sort last on every driver
const orderByActivity = `ORDER BY CASE WHEN latest_learn_time IS NULL THEN 1 ELSE 0 END,
	latest_learn_time DESC, create_time DESC, id`

// LessonSQL LessonRepository on top of ITransactionalDB, statements run in the
// transaction carried by ctx when there is one
type LessonSQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ LessonRepository = &LessonSQL{}

// NewLessonRepository create a LessonSQL
func NewLessonRepository(Conn driver.ITransactionalDB) *LessonSQL {
	return &LessonSQL{
		Conn: Conn,
	}
}

func (repo *LessonSQL) FindByID(ctx context.Context, id string) (*LessonModel, error) {
	return repo.findOne(ctx, "find lesson", `
SELECT `+lessonColumns+`
FROM
	learning_lesson
WHERE
	id = $1`, id)
}

func (repo *LessonSQL) FindByLearnerAndCourse(ctx context.Context, learnerID string, courseID int64) (*LessonModel, error) {
	return repo.findOne(ctx, "find lesson by course", `
SELECT `+lessonColumns+`
FROM
	learning_lesson
WHERE
	learner_id = $1 AND course_id = $2`, learnerID, courseID)
}

func (repo *LessonSQL) FindLatestInProgress(ctx context.Context, learnerID string) (*LessonModel, error) {
	return repo.findOne(ctx, "find current lesson", `
SELECT `+lessonColumns+`
FROM
	learning_lesson
WHERE
	learner_id = $1 AND status = $2
`+orderByActivity+`
LIMIT 1`, learnerID, int(InProgress))
}

func (repo *LessonSQL) CountByLearner(ctx context.Context, learnerID string) (int64, error) {
	return repo.count(ctx, "count lessons", `
SELECT COUNT(*) FROM learning_lesson WHERE learner_id = $1`, learnerID)
}

func (repo *LessonSQL) PageByLearner(ctx context.Context, learnerID string, page domain.PageQuery) ([]*LessonModel, int64, error) {
	total, err := repo.CountByLearner(ctx, learnerID)
	if err != nil || total == 0 {
		return nil, total, err
	}
	list, err := repo.findMany(ctx, "page lessons", `
SELECT `+lessonColumns+`
FROM
	learning_lesson
WHERE
	learner_id = $1
`+orderByActivity+`
LIMIT $2 OFFSET $3`, learnerID, page.PageSize, page.Offset())
	return list, total, err
}

func (repo *LessonSQL) PageActivePlans(ctx context.Context, learnerID string, page domain.PageQuery) ([]*LessonModel, int64, error) {
	args := []interface{}{learnerID, int(PlanActive), int(NotStarted), int(InProgress)}
	total, err := repo.count(ctx, "count plans", `
SELECT COUNT(*)
FROM
	learning_lesson
WHERE
	learner_id = $1 AND plan_status = $2 AND status IN ($3, $4)`, args...)
	if err != nil || total == 0 {
		return nil, total, err
	}
	list, err := repo.findMany(ctx, "page plans", `
SELECT `+lessonColumns+`
FROM
	learning_lesson
WHERE
	learner_id = $1 AND plan_status = $2 AND status IN ($3, $4)
`+orderByActivity+`
LIMIT $5 OFFSET $6`, append(args, page.PageSize, page.Offset())...)
	return list, total, err
}

func (repo *LessonSQL) SumActiveWeeklyTarget(ctx context.Context, learnerID string) (int, error) {
	sum, err := repo.count(ctx, "sum weekly target", `
SELECT COALESCE(SUM(week_freq), 0)
FROM
	learning_lesson
WHERE
	learner_id = $1 AND plan_status = $2 AND status IN ($3, $4)`,
		learnerID, int(PlanActive), int(NotStarted), int(InProgress))
	return int(sum), err
}

func (repo *LessonSQL) Insert(ctx context.Context, lesson *LessonModel) error {
	conn := driver.Executor(ctx, repo.Conn)
	_, err := conn.ExecContext(ctx, `
INSERT INTO learning_lesson (`+lessonColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lesson.ID, lesson.LearnerID, lesson.CourseID, int(lesson.Status), lesson.LearnedSections,
		nullInt64(lesson.LatestSectionID), nullTime(lesson.LatestLearnTime), nullTime(lesson.ExpireTime),
		lesson.WeekFreq, int(lesson.PlanStatus), lesson.CreateTime.UTC(), lesson.UpdateTime.UTC())
	if driver.IsUniqueViolation(err) {
		return fmt.Errorf("insert lesson for course %d: %w", lesson.CourseID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert lesson: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// ApplyFirstCompletion implement LessonRepository.
//
// status is assigned before learned_sections, mysql evaluates single table
// assignments from left to right and must see the counter before the increment.
// The counter never passes totalSections.
func (repo *LessonSQL) ApplyFirstCompletion(ctx context.Context, lessonID string, sectionID int64, at time.Time, totalSections int) error {
	conn := driver.Executor(ctx, repo.Conn)
	res, err := conn.ExecContext(ctx, `
UPDATE learning_lesson
SET
	status = CASE
		WHEN learned_sections + 1 >= $1 THEN $2
		WHEN status = $3 THEN $4
		ELSE status
	END,
	learned_sections = learned_sections + 1,
	latest_section_id = $5,
	latest_learn_time = $6,
	update_time = $7
WHERE
	id = $8 AND learned_sections < $9`,
		totalSections, int(Finished), int(NotStarted), int(InProgress),
		sectionID, at.UTC(), at.UTC(), lessonID, totalSections)
	if err != nil {
		return fmt.Errorf("update lesson progress: %w: %w", domain.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w: %w", domain.ErrStorage, err)
	}
	if n > 0 {
		return nil
	}

	ls, err := repo.FindByID(ctx, lessonID)
	if err != nil {
		return err
	}
	if ls == nil {
		return fmt.Errorf("lesson %s: %w", lessonID, domain.ErrLessonVanished)
	}
	return fmt.Errorf("lesson %s counts %d of %d sections: %w",
		lessonID, ls.LearnedSections, totalSections, domain.ErrAllSectionsCounted)
}

func (repo *LessonSQL) UpdatePlan(ctx context.Context, lessonID string, weekFreq int, at time.Time) error {
	conn := driver.Executor(ctx, repo.Conn)
	res, err := conn.ExecContext(ctx, `
UPDATE learning_lesson
SET
	week_freq = $1,
	plan_status = $2,
	update_time = $3
WHERE
	id = $4`, weekFreq, int(PlanActive), at.UTC(), lessonID)
	if err != nil {
		return fmt.Errorf("update plan: %w: %w", domain.ErrStorage, err)
	}
	return expectOneRow(res, lessonID)
}

func (repo *LessonSQL) Delete(ctx context.Context, lessonID string) error {
	conn := driver.Executor(ctx, repo.Conn)
	if _, err := conn.ExecContext(ctx, `DELETE FROM learning_lesson WHERE id = $1`, lessonID); err != nil {
		return fmt.Errorf("delete lesson: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (repo *LessonSQL) findOne(ctx context.Context, op, query string, args ...interface{}) (*LessonModel, error) {
	list, err := repo.findMany(ctx, op, query, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (repo *LessonSQL) findMany(ctx context.Context, op, query string, args ...interface{}) ([]*LessonModel, error) {
	conn := driver.Executor(ctx, repo.Conn)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	defer rows.Close()

	var result []*LessonModel
	for rows.Next() {
		item, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	return result, nil
}

func (repo *LessonSQL) count(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	conn := driver.Executor(ctx, repo.Conn)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	return n, nil
}

func scanLesson(rows driver.ISQLRows) (*LessonModel, error) {
	var (
		item            = new(LessonModel)
		status, plan    int
		latestSectionID sql.NullInt64
		latestLearnTime sql.NullTime
		expireTime      sql.NullTime
	)
	err := rows.Scan(&item.ID, &item.LearnerID, &item.CourseID, &status, &item.LearnedSections, &latestSectionID,
		&latestLearnTime, &expireTime, &item.WeekFreq, &plan, &item.CreateTime, &item.UpdateTime)
	if err != nil {
		return nil, err
	}
	item.Status = LessonStatus(status)
	item.PlanStatus = PlanStatus(plan)
	if latestSectionID.Valid {
		item.LatestSectionID = &latestSectionID.Int64
	}
	item.LatestLearnTime = utcPtr(latestLearnTime)
	item.ExpireTime = utcPtr(expireTime)
	item.CreateTime = item.CreateTime.UTC()
	item.UpdateTime = item.UpdateTime.UTC()
	return item, nil
}

func expectOneRow(res sql.Result, lessonID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w: %w", domain.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("lesson %s: %w", lessonID, domain.ErrLessonVanished)
	}
	return nil
}

func utcPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
