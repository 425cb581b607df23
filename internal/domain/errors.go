package domain

import (
	"errors"
	"fmt"
)

// error kinds, every error returned by a use case wraps one of them
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDependency      = errors.New("dependency unavailable")
	ErrStorage         = errors.New("storage failure")
)

// ErrLessonNotFound the learner has no lesson for the course or lesson id
var ErrLessonNotFound = fmt.Errorf("lesson: %w", ErrNotFound)

// ErrCourseNotFound the catalogue does not know the course
var ErrCourseNotFound = fmt.Errorf("course: %w", ErrNotFound)

// ErrInvalidSectionType section type is neither video nor exam
var ErrInvalidSectionType = fmt.Errorf("section type must be video or exam: %w", ErrValidation)

// ErrSectionNotInCourse the section id is not listed by the course catalogue
var ErrSectionNotInCourse = fmt.Errorf("section is not part of the course: %w", ErrValidation)

// ErrAllSectionsCounted the lesson already counts as many finished sections as the course has
var ErrAllSectionsCounted = fmt.Errorf("lesson already counts every section of the course: %w", ErrConflict)

// ErrLessonVanished a conditional update on the lesson applied to no row
var ErrLessonVanished = fmt.Errorf("lesson update matched no row: %w", ErrStorage)

// ErrMissingLearner no learner identity was supplied
var ErrMissingLearner = fmt.Errorf("learner id is required: %w", ErrValidation)
