// Package cataloguetest provides an in-memory catalogue.Gateway for tests
package cataloguetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pot-code/learning-service/internal/catalogue"
	"github.com/pot-code/learning-service/internal/domain"
)

// Gateway in-memory catalogue.Gateway counting its calls
type Gateway struct {
	mu       sync.Mutex
	courses  map[int64]*catalogue.CourseFullInfo
	sections map[int64]*catalogue.SectionInfo
	err      error
	calls    map[string]int
}

var _ catalogue.Gateway = &Gateway{}

// New create an empty Gateway
func New() *Gateway {
	return &Gateway{
		courses:  make(map[int64]*catalogue.CourseFullInfo),
		sections: make(map[int64]*catalogue.SectionInfo),
		calls:    make(map[string]int),
	}
}

// AddCourse register or replace a course whose sections are numbered 1 to sectionCount
func (g *Gateway) AddCourse(id int64, name string, sectionCount, validMonths int) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	sectionIDs := make([]int64, sectionCount)
	for i := range sectionIDs {
		sectionIDs[i] = int64(i + 1)
	}
	g.courses[id] = &catalogue.CourseFullInfo{
		SectionIDs: sectionIDs,
		SimpleCourseInfo: catalogue.SimpleCourseInfo{
			ID:                  id,
			Name:                name,
			CoverURL:            fmt.Sprintf("https://cdn.example.com/%d.png", id),
			SectionCount:        sectionCount,
			ValidDurationMonths: validMonths,
		},
	}
	return g
}

// AddSection register or replace a section
func (g *Gateway) AddSection(id int64, name string, index int) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sections[id] = &catalogue.SectionInfo{ID: id, Name: name, Index: index}
	return g
}

// Fail make every following call return err, nil restores normal answers
func (g *Gateway) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Calls number of calls made to method
func (g *Gateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *Gateway) enter(method string) error {
	g.calls[method]++
	return g.err
}

func (g *Gateway) GetSectionCount(ctx context.Context, courseID int64) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("GetSectionCount"); err != nil {
		return 0, err
	}
	course, ok := g.courses[courseID]
	if !ok {
		return 0, domain.ErrCourseNotFound
	}
	return course.SectionCount, nil
}

func (g *Gateway) GetSimpleCourseInfo(ctx context.Context, courseIDs []int64) (map[int64]*catalogue.SimpleCourseInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("GetSimpleCourseInfo"); err != nil {
		return nil, err
	}
	result := make(map[int64]*catalogue.SimpleCourseInfo)
	for _, id := range courseIDs {
		if course, ok := g.courses[id]; ok {
			info := course.SimpleCourseInfo
			result[id] = &info
		}
	}
	return result, nil
}

func (g *Gateway) GetCourseFullInfo(ctx context.Context, courseID int64) (*catalogue.CourseFullInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("GetCourseFullInfo"); err != nil {
		return nil, err
	}
	course, ok := g.courses[courseID]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	info := *course
	info.SectionIDs = append([]int64(nil), course.SectionIDs...)
	return &info, nil
}

func (g *Gateway) BatchGetSectionInfo(ctx context.Context, sectionIDs []int64) ([]*catalogue.SectionInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("BatchGetSectionInfo"); err != nil {
		return nil, err
	}
	result := make([]*catalogue.SectionInfo, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		if s, ok := g.sections[id]; ok {
			info := *s
			result = append(result, &info)
		}
	}
	return result, nil
}
