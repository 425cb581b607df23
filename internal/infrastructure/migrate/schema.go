// Package migrate holds the table layout of the learning service for every supported driver
package migrate

import (
	"context"
	"fmt"

	"github.com/pot-code/learning-service/internal/infrastructure/driver"
)

// lesson: one row per learner and course.
// record: one row per learner, lesson and section.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS learning_lesson (
		id VARCHAR(32) NOT NULL,
		learner_id VARCHAR(64) NOT NULL,
		course_id BIGINT NOT NULL,
		status TINYINT NOT NULL DEFAULT 0,
		learned_sections INT NOT NULL DEFAULT 0,
		latest_section_id BIGINT NULL,
		latest_learn_time DATETIME(3) NULL,
		expire_time DATETIME(3) NULL,
		week_freq INT NOT NULL DEFAULT 0,
		plan_status TINYINT NOT NULL DEFAULT 0,
		create_time DATETIME(3) NOT NULL,
		update_time DATETIME(3) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uk_learner_course (learner_id, course_id),
		KEY idx_learner_latest (learner_id, latest_learn_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS learning_record (
		id VARCHAR(32) NOT NULL,
		learner_id VARCHAR(64) NOT NULL,
		lesson_id VARCHAR(32) NOT NULL,
		section_id BIGINT NOT NULL,
		section_type TINYINT NOT NULL,
		moment INT NOT NULL DEFAULT 0,
		duration INT NOT NULL DEFAULT 0,
		finished BOOLEAN NOT NULL DEFAULT FALSE,
		finish_time DATETIME(3) NULL,
		create_time DATETIME(3) NOT NULL,
		update_time DATETIME(3) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uk_learner_lesson_section (learner_id, lesson_id, section_id),
		KEY idx_learner_finish (learner_id, finished, finish_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS learning_lesson (
		id VARCHAR(32) PRIMARY KEY,
		learner_id VARCHAR(64) NOT NULL,
		course_id BIGINT NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0,
		learned_sections INTEGER NOT NULL DEFAULT 0,
		latest_section_id BIGINT NULL,
		latest_learn_time TIMESTAMPTZ NULL,
		expire_time TIMESTAMPTZ NULL,
		week_freq INTEGER NOT NULL DEFAULT 0,
		plan_status SMALLINT NOT NULL DEFAULT 0,
		create_time TIMESTAMPTZ NOT NULL,
		update_time TIMESTAMPTZ NOT NULL,
		CONSTRAINT uk_learner_course UNIQUE (learner_id, course_id),
		CONSTRAINT ck_learned_sections CHECK (learned_sections >= 0),
		CONSTRAINT ck_week_freq CHECK (week_freq >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learner_latest ON learning_lesson (learner_id, latest_learn_time)`,
	`CREATE TABLE IF NOT EXISTS learning_record (
		id VARCHAR(32) PRIMARY KEY,
		learner_id VARCHAR(64) NOT NULL,
		lesson_id VARCHAR(32) NOT NULL,
		section_id BIGINT NOT NULL,
		section_type SMALLINT NOT NULL,
		moment INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		finished BOOLEAN NOT NULL DEFAULT FALSE,
		finish_time TIMESTAMPTZ NULL,
		create_time TIMESTAMPTZ NOT NULL,
		update_time TIMESTAMPTZ NOT NULL,
		CONSTRAINT uk_learner_lesson_section UNIQUE (learner_id, lesson_id, section_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learner_finish ON learning_record (learner_id, finish_time) WHERE finished`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS learning_lesson (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		course_id INTEGER NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		learned_sections INTEGER NOT NULL DEFAULT 0 CHECK (learned_sections >= 0),
		latest_section_id INTEGER NULL,
		latest_learn_time DATETIME NULL,
		expire_time DATETIME NULL,
		week_freq INTEGER NOT NULL DEFAULT 0 CHECK (week_freq >= 0),
		plan_status INTEGER NOT NULL DEFAULT 0,
		create_time DATETIME NOT NULL,
		update_time DATETIME NOT NULL,
		UNIQUE (learner_id, course_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learner_latest ON learning_lesson (learner_id, latest_learn_time)`,
	`CREATE TABLE IF NOT EXISTS learning_record (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		section_id INTEGER NOT NULL,
		section_type INTEGER NOT NULL,
		moment INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		finished BOOLEAN NOT NULL DEFAULT FALSE,
		finish_time DATETIME NULL,
		create_time DATETIME NOT NULL,
		update_time DATETIME NOT NULL,
		UNIQUE (learner_id, lesson_id, section_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learner_finish ON learning_record (learner_id, finished, finish_time)`,
}

// Statements returns the DDL for driverName
func Statements(driverName string) ([]string, error) {
	switch driverName {
	case driver.DriverMySQL:
		return mysqlSchema, nil
	case driver.DriverPostgres:
		return postgresSchema, nil
	case driver.DriverSQLite:
		return sqliteSchema, nil
	}
	return nil, fmt.Errorf("no schema for driver: %s", driverName)
}

// Migrate create missing tables, existing tables are left as they are
func Migrate(ctx context.Context, conn driver.ITransactionalDB, driverName string) error {
	stmts, err := Statements(driverName)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
