package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const (
	courseKeyPrefix  = "catalogue:course:"
	sectionKeyPrefix = "catalogue:section:"
)

// CachedGateway keeps course and section display data in a key-value store.
//
// Section counts and full course info are always fetched from the wrapped
// Gateway. A store failure degrades to a direct fetch.
type CachedGateway struct {
	next Gateway
	kv   driver.KeyValueDB
	ttl  time.Duration
}

var _ Gateway = &CachedGateway{}

// NewCachedGateway wrap next with a cache, ttl <= 0 returns next unchanged
func NewCachedGateway(next Gateway, kv driver.KeyValueDB, ttl time.Duration) Gateway {
	if ttl <= 0 || kv == nil {
		return next
	}
	return &CachedGateway{next: next, kv: kv, ttl: ttl}
}

func (cg *CachedGateway) GetSectionCount(ctx context.Context, courseID int64) (int, error) {
	return cg.next.GetSectionCount(ctx, courseID)
}

func (cg *CachedGateway) GetCourseFullInfo(ctx context.Context, courseID int64) (*CourseFullInfo, error) {
	return cg.next.GetCourseFullInfo(ctx, courseID)
}

func (cg *CachedGateway) GetSimpleCourseInfo(ctx context.Context, courseIDs []int64) (map[int64]*SimpleCourseInfo, error) {
	result := make(map[int64]*SimpleCourseInfo, len(courseIDs))
	var missed []int64
	for _, id := range courseIDs {
		info := new(SimpleCourseInfo)
		if cg.load(ctx, courseKeyPrefix+strconv.FormatInt(id, 10), info) {
			result[id] = info
		} else {
			missed = append(missed, id)
		}
	}
	if len(missed) == 0 {
		return result, nil
	}

	fetched, err := cg.next.GetSimpleCourseInfo(ctx, missed)
	if err != nil {
		return nil, err
	}
	for id, info := range fetched {
		result[id] = info
		cg.store(ctx, courseKeyPrefix+strconv.FormatInt(id, 10), info)
	}
	return result, nil
}

func (cg *CachedGateway) BatchGetSectionInfo(ctx context.Context, sectionIDs []int64) ([]*SectionInfo, error) {
	cached := make(map[int64]*SectionInfo, len(sectionIDs))
	var missed []int64
	for _, id := range sectionIDs {
		info := new(SectionInfo)
		if cg.load(ctx, sectionKeyPrefix+strconv.FormatInt(id, 10), info) {
			cached[id] = info
		} else {
			missed = append(missed, id)
		}
	}

	if len(missed) > 0 {
		fetched, err := cg.next.BatchGetSectionInfo(ctx, missed)
		if err != nil {
			return nil, err
		}
		for _, info := range fetched {
			cached[info.ID] = info
			cg.store(ctx, sectionKeyPrefix+strconv.FormatInt(info.ID, 10), info)
		}
	}

	result := make([]*SectionInfo, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		if info, ok := cached[id]; ok {
			result = append(result, info)
		}
	}
	return result, nil
}

func (cg *CachedGateway) load(ctx context.Context, key string, v interface{}) bool {
	raw, err := cg.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, driver.ErrKeyNotFound) {
			logging.ExtractLoggerFromContext(ctx).Warn(err.Error(), zap.String("cache.key", key))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger := logging.ExtractLoggerFromContext(ctx)
		logger.Warn(err.Error(), zap.String("cache.key", key))
		// written by an incompatible release, drop it so the next fetch replaces it
		if err := cg.kv.Delete(ctx, key); err != nil {
			logger.Warn(err.Error(), zap.String("cache.key", key))
		}
		return false
	}
	return true
}

func (cg *CachedGateway) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := cg.kv.SetEX(ctx, key, string(raw), cg.ttl); err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn(err.Error(), zap.String("cache.key", key))
	}
}
