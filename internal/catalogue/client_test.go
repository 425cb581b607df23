package catalogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pot-code/learning-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/courses/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CourseFullInfo{
			SimpleCourseInfo: SimpleCourseInfo{ID: 7, Name: "Go", SectionCount: 10, ValidDurationMonths: 12},
			ChapterCount:     2,
		})
	})
	mux.HandleFunc("/courses/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/courses/simple-info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7,8", r.URL.Query().Get("ids"))
		json.NewEncoder(w).Encode([]SimpleCourseInfo{
			{ID: 7, Name: "Go", SectionCount: 10},
			{ID: 8, Name: "Rust", SectionCount: 4},
		})
	})
	mux.HandleFunc("/catalogues", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]SectionInfo{
			{ID: 3, Name: "closures", Index: 3},
			{ID: 1, Name: "hello", Index: 1},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_GetSectionCount(t *testing.T) {
	client := NewHTTPClient(newCourseServer(t).URL+"/", time.Second)

	n, err := client.GetSectionCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestHTTPClient_GetCourseFullInfo(t *testing.T) {
	client := NewHTTPClient(newCourseServer(t).URL, time.Second)

	info, err := client.GetCourseFullInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Go", info.Name)
	assert.Equal(t, 2, info.ChapterCount)
	assert.Equal(t, 12, info.ValidDurationMonths)
}

func TestHTTPClient_errors(t *testing.T) {
	client := NewHTTPClient(newCourseServer(t).URL, time.Second)

	t.Run("unknown course", func(t *testing.T) {
		_, err := client.GetSectionCount(context.Background(), 404)
		assert.ErrorIs(t, err, domain.ErrCourseNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("server failure", func(t *testing.T) {
		_, err := client.GetSectionCount(context.Background(), 500)
		assert.ErrorIs(t, err, domain.ErrDependency)
	})
	t.Run("unreachable", func(t *testing.T) {
		down := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
		_, err := down.GetSectionCount(context.Background(), 7)
		assert.ErrorIs(t, err, domain.ErrDependency)
	})
}

func TestHTTPClient_GetSimpleCourseInfo(t *testing.T) {
	client := NewHTTPClient(newCourseServer(t).URL, time.Second)

	infos, err := client.GetSimpleCourseInfo(context.Background(), []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Rust", infos[8].Name)

	empty, err := client.GetSimpleCourseInfo(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHTTPClient_BatchGetSectionInfo_keepsRequestOrder(t *testing.T) {
	client := NewHTTPClient(newCourseServer(t).URL, time.Second)

	sections, err := client.BatchGetSectionInfo(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, int64(1), sections[0].ID)
	assert.Equal(t, int64(3), sections[1].ID)
}
