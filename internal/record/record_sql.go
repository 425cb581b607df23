package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
)

const recordColumns = `id, learner_id, lesson_id, section_id, section_type, moment, duration,
	finished, finish_time, create_time, update_time`

// RecordSQL RecordRepository on top of ITransactionalDB, statements run in the
// transaction carried by ctx when there is one.
//
// Booleans are always bound as parameters and times are stored in UTC so that the
// same statements behave alike on every driver.
type RecordSQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ RecordRepository = &RecordSQL{}

// NewRecordRepository create a RecordSQL
func NewRecordRepository(Conn driver.ITransactionalDB) *RecordSQL {
	return &RecordSQL{
		Conn: Conn,
	}
}

func (repo *RecordSQL) FindBySection(ctx context.Context, learnerID, lessonID string, sectionID int64) (*RecordModel, error) {
	list, err := repo.findMany(ctx, "find record", `
SELECT `+recordColumns+`
FROM
	learning_record
WHERE
	learner_id = $1 AND lesson_id = $2 AND section_id = $3`, learnerID, lessonID, sectionID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (repo *RecordSQL) ListByLesson(ctx context.Context, learnerID, lessonID string) ([]*RecordModel, error) {
	list, err := repo.findMany(ctx, "list records", `
SELECT `+recordColumns+`
FROM
	learning_record
WHERE
	learner_id = $1 AND lesson_id = $2
ORDER BY section_id`, learnerID, lessonID)
	if list == nil && err == nil {
		list = []*RecordModel{}
	}
	return list, err
}

func (repo *RecordSQL) Insert(ctx context.Context, record *RecordModel) error {
	var finishTime sql.NullTime
	if record.FinishTime != nil {
		finishTime = sql.NullTime{Time: record.FinishTime.UTC(), Valid: true}
	}
	conn := driver.Executor(ctx, repo.Conn)
	_, err := conn.ExecContext(ctx, `
INSERT INTO learning_record (`+recordColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.LearnerID, record.LessonID, record.SectionID, int(record.SectionType),
		record.Moment, record.Duration, record.Finished, finishTime,
		record.CreateTime.UTC(), record.UpdateTime.UTC())
	if driver.IsUniqueViolation(err) {
		return fmt.Errorf("insert record for section %d: %w", record.SectionID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert record: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (repo *RecordSQL) MarkFinished(ctx context.Context, id string, moment int, at time.Time) (bool, error) {
	conn := driver.Executor(ctx, repo.Conn)
	res, err := conn.ExecContext(ctx, `
UPDATE learning_record
SET
	moment = $1,
	finished = $2,
	finish_time = $3,
	update_time = $4
WHERE
	id = $5 AND finished = $6`, moment, true, at.UTC(), at.UTC(), id, false)
	if err != nil {
		return false, fmt.Errorf("finish record: %w: %w", domain.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish record: %w: %w", domain.ErrStorage, err)
	}
	return n == 1, nil
}

func (repo *RecordSQL) UpdatePosition(ctx context.Context, id string, moment, duration int, at time.Time, includeFinished bool) error {
	conn := driver.Executor(ctx, repo.Conn)
	var err error
	if includeFinished {
		_, err = conn.ExecContext(ctx, `
UPDATE learning_record
SET
	moment = $1,
	duration = $2,
	update_time = $3
WHERE
	id = $4`, moment, duration, at.UTC(), id)
	} else {
		_, err = conn.ExecContext(ctx, `
UPDATE learning_record
SET
	moment = $1,
	duration = $2,
	update_time = $3
WHERE
	id = $4 AND finished = $5`, moment, duration, at.UTC(), id, false)
	}
	if err != nil {
		return fmt.Errorf("update record position: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (repo *RecordSQL) CountFinishedBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error) {
	conn := driver.Executor(ctx, repo.Conn)
	rows, err := conn.QueryContext(ctx, `
SELECT COUNT(*)
FROM
	learning_record
WHERE
	learner_id = $1 AND finished = $2 AND finish_time >= $3 AND finish_time < $4`,
		learnerID, true, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("count finished records: %w: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("count finished records: %w: %w", domain.ErrStorage, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count finished records: %w: %w", domain.ErrStorage, err)
	}
	return n, nil
}

func (repo *RecordSQL) CountFinishedByLesson(ctx context.Context, learnerID string, lessonIDs []string, from, to time.Time) (map[string]int, error) {
	result := make(map[string]int, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return result, nil
	}

	args := []interface{}{learnerID, true, from.UTC(), to.UTC()}
	for _, id := range lessonIDs {
		args = append(args, id)
	}
	conn := driver.Executor(ctx, repo.Conn)
	rows, err := conn.QueryContext(ctx, `
SELECT lesson_id, COUNT(*)
FROM
	learning_record
WHERE
	learner_id = $1 AND finished = $2 AND finish_time >= $3 AND finish_time < $4
		AND lesson_id IN (`+driver.Placeholders(5, len(lessonIDs))+`)
GROUP BY lesson_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("count finished records by lesson: %w: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lessonID string
			n        int
		)
		if err := rows.Scan(&lessonID, &n); err != nil {
			return nil, fmt.Errorf("count finished records by lesson: %w: %w", domain.ErrStorage, err)
		}
		result[lessonID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count finished records by lesson: %w: %w", domain.ErrStorage, err)
	}
	return result, nil
}

func (repo *RecordSQL) DeleteByLesson(ctx context.Context, lessonID string) error {
	conn := driver.Executor(ctx, repo.Conn)
	if _, err := conn.ExecContext(ctx, `DELETE FROM learning_record WHERE lesson_id = $1`, lessonID); err != nil {
		return fmt.Errorf("delete records: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (repo *RecordSQL) findMany(ctx context.Context, op, query string, args ...interface{}) ([]*RecordModel, error) {
	conn := driver.Executor(ctx, repo.Conn)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	defer rows.Close()

	var result []*RecordModel
	for rows.Next() {
		var (
			item        = new(RecordModel)
			sectionType int
			finishTime  sql.NullTime
		)
		err := rows.Scan(&item.ID, &item.LearnerID, &item.LessonID, &item.SectionID, &sectionType, &item.Moment,
			&item.Duration, &item.Finished, &finishTime, &item.CreateTime, &item.UpdateTime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
		}
		item.SectionType = SectionType(sectionType)
		if finishTime.Valid {
			t := finishTime.Time.UTC()
			item.FinishTime = &t
		}
		item.CreateTime = item.CreateTime.UTC()
		item.UpdateTime = item.UpdateTime.UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
	return result, nil
}
