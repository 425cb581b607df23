// Package catalogue talks to the course service for section counts and course display data
package catalogue

import "context"

// SimpleCourseInfo course display data
type SimpleCourseInfo struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	CoverURL            string `json:"cover_url"`
	SectionCount        int    `json:"section_count"`
	ValidDurationMonths int    `json:"valid_duration_months"` // 0 means the enrollment never expires
}

// CourseFullInfo course detail
type CourseFullInfo struct {
	SimpleCourseInfo
	ChapterCount int     `json:"chapter_count"`
	SectionIDs   []int64 `json:"section_ids"`
}

// SectionInfo a section of a course catalogue
type SectionInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"` // position in the course, starting at 1
}

// Gateway course metadata lookups, every failure is returned to the caller
type Gateway interface {
	// GetSectionCount total sections of the course, never served from cache
	GetSectionCount(ctx context.Context, courseID int64) (int, error)
	GetSimpleCourseInfo(ctx context.Context, courseIDs []int64) (map[int64]*SimpleCourseInfo, error)
	GetCourseFullInfo(ctx context.Context, courseID int64) (*CourseFullInfo, error)
	// BatchGetSectionInfo result follows the order of sectionIDs, unknown ids are left out
	BatchGetSectionInfo(ctx context.Context, sectionIDs []int64) ([]*SectionInfo, error)
}
