package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// HTTPClient Gateway implementation calling the course service REST API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Gateway = &HTTPClient{}

// NewHTTPClient create a client for the course service at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (hc *HTTPClient) GetSectionCount(ctx context.Context, courseID int64) (int, error) {
	info, err := hc.GetCourseFullInfo(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return info.SectionCount, nil
}

func (hc *HTTPClient) GetSimpleCourseInfo(ctx context.Context, courseIDs []int64) (map[int64]*SimpleCourseInfo, error) {
	result := make(map[int64]*SimpleCourseInfo, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	var list []*SimpleCourseInfo
	if err := hc.get(ctx, "/courses/simple-info?ids="+joinIDs(courseIDs), &list); err != nil {
		return nil, fmt.Errorf("get simple course info: %w", err)
	}
	for _, info := range list {
		result[info.ID] = info
	}
	return result, nil
}

func (hc *HTTPClient) GetCourseFullInfo(ctx context.Context, courseID int64) (*CourseFullInfo, error) {
	info := new(CourseFullInfo)
	if err := hc.get(ctx, "/courses/"+strconv.FormatInt(courseID, 10), info); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("course %d: %w", courseID, domain.ErrCourseNotFound)
		}
		return nil, fmt.Errorf("get course %d: %w", courseID, err)
	}
	return info, nil
}

func (hc *HTTPClient) BatchGetSectionInfo(ctx context.Context, sectionIDs []int64) ([]*SectionInfo, error) {
	if len(sectionIDs) == 0 {
		return []*SectionInfo{}, nil
	}

	var list []*SectionInfo
	if err := hc.get(ctx, "/catalogues?ids="+joinIDs(sectionIDs), &list); err != nil {
		return nil, fmt.Errorf("batch get section info: %w", err)
	}
	return orderSections(sectionIDs, list), nil
}

// get decode the JSON body of GET path into v. transport failures and unexpected
// statuses wrap domain.ErrDependency, 404 wraps domain.ErrNotFound
func (hc *HTTPClient) get(ctx context.Context, path string, v interface{}) error {
	apmSpan, ctx := apm.StartSpan(ctx, "GET "+path, "external.http")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		logger.Warn(err.Error(), zap.String("url.path", path))
		return fmt.Errorf("%w: %w", domain.ErrDependency, err)
	}
	defer resp.Body.Close()

	logger.Debug("", zap.String("url.path", path),
		zap.Int("http.response.status_code", resp.StatusCode),
		zap.Duration("event.duration", time.Since(startTime)))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: course service answered %d: %s", domain.ErrDependency, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrDependency, err)
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return url.QueryEscape(strings.Join(parts, ","))
}

func orderSections(ids []int64, list []*SectionInfo) []*SectionInfo {
	byID := make(map[int64]*SectionInfo, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}
	result := make([]*SectionInfo, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			result = append(result, s)
		}
	}
	return result
}
