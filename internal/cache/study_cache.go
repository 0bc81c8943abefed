package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/studylion/studypartner-backend/internal/models"
)

const (
	StudyDetailTTL = 2 * time.Minute
	PopularListTTL = 5 * time.Minute
)

// StudyCache handles read-side caching for study projections. It is never
// consulted for capacity checks; the counter in the database stays
// authoritative.
type StudyCache struct {
	redis *RedisCache
}

// NewStudyCache creates a new study cache
func NewStudyCache(redis *RedisCache) *StudyCache {
	return &StudyCache{redis: redis}
}

func studyKey(studyID uint) string {
	return fmt.Sprintf("study:%d", studyID)
}

const popularKey = "studies:popular"

// GetStudy retrieves a cached study detail projection
func (sc *StudyCache) GetStudy(studyID uint) (*models.StudyResponse, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(studyKey(studyID))
	if err != nil || data == nil {
		return nil, false
	}

	var study models.StudyResponse
	if err := msgpack.Unmarshal(data, &study); err != nil {
		return nil, false
	}
	return &study, true
}

// SetStudy caches a study detail projection
func (sc *StudyCache) SetStudy(studyID uint, study *models.StudyResponse) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(study)
	if err != nil {
		return err
	}
	return sc.redis.Set(studyKey(studyID), data, StudyDetailTTL)
}

// InvalidateStudy drops the cached detail projection and every cached
// listing after a mutation. Listing keys all live under studies:*.
func (sc *StudyCache) InvalidateStudy(studyID uint) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	if err := sc.redis.Delete(studyKey(studyID)); err != nil {
		return err
	}
	return sc.redis.DeletePattern("studies:*")
}

// GetPopular retrieves the cached popular listing
func (sc *StudyCache) GetPopular() ([]models.StudyResponse, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(popularKey)
	if err != nil || data == nil {
		return nil, false
	}

	var studies []models.StudyResponse
	if err := msgpack.Unmarshal(data, &studies); err != nil {
		return nil, false
	}
	return studies, true
}

// SetPopular caches the popular listing
func (sc *StudyCache) SetPopular(studies []models.StudyResponse) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(studies)
	if err != nil {
		return err
	}
	return sc.redis.Set(popularKey, data, PopularListTTL)
}
