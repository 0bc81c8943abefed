package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/cache"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
)

// StudyQueryService is the read side: listings, search and the "my studies"
// projection. It enforces no invariants and never mutates state.
type StudyQueryService struct {
	studyRepo  repository.StudyRepositoryInterface
	memberRepo repository.StudyMemberRepositoryInterface
	studyCache *cache.StudyCache
}

func NewStudyQueryService(
	studyRepo repository.StudyRepositoryInterface,
	memberRepo repository.StudyMemberRepositoryInterface,
	studyCache *cache.StudyCache,
) *StudyQueryService {
	return &StudyQueryService{
		studyRepo:  studyRepo,
		memberRepo: memberRepo,
		studyCache: studyCache,
	}
}

// GetStudyDetail returns the study with its active members, decorated with
// whether the viewer currently belongs to it.
func (s *StudyQueryService) GetStudyDetail(studyID, viewerID uint) (*models.StudyResponse, error) {
	resp, ok := s.studyCache.GetStudy(studyID)
	if !ok {
		study, err := s.studyRepo.FindByIDWithMembers(studyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("study_not_found", "study not found")
			}
			return nil, apperr.Unavailable("study_lookup", err)
		}
		r := study.ToResponse()
		resp = &r
		_ = s.studyCache.SetStudy(studyID, resp)
	}

	// Viewer decoration is per-request; never cached. A lookup failure is
	// not the same as a miss and must not demote the viewer.
	if viewerID != 0 {
		_, err := s.memberRepo.FindActive(studyID, viewerID)
		switch {
		case err == nil:
			resp.IsMember = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperr.Unavailable("member_lookup", err)
		}
	}
	return resp, nil
}

func (s *StudyQueryService) ListStudies(page repository.Page) ([]models.StudyResponse, int64, error) {
	return s.wrap(s.studyRepo.List(page))
}

func (s *StudyQueryService) ListByCategory(category string, page repository.Page) ([]models.StudyResponse, int64, error) {
	return s.wrap(s.studyRepo.ListByCategory(category, page))
}

func (s *StudyQueryService) ListByLocation(location string, page repository.Page) ([]models.StudyResponse, int64, error) {
	return s.wrap(s.studyRepo.ListByLocation(location, page))
}

func (s *StudyQueryService) ListByStatus(status models.StudyStatus, page repository.Page) ([]models.StudyResponse, int64, error) {
	if !models.ValidStudyStatus(status) {
		return nil, 0, apperr.Invalid("invalid_status", "invalid study status")
	}
	return s.wrap(s.studyRepo.ListByStatus(status, page))
}

// Search applies a composite filter; nil criteria fields impose no
// constraint and set fields are ANDed.
func (s *StudyQueryService) Search(criteria repository.StudySearch, page repository.Page) ([]models.StudyResponse, int64, error) {
	if criteria.Status != nil && !models.ValidStudyStatus(*criteria.Status) {
		return nil, 0, apperr.Invalid("invalid_status", "invalid study status")
	}
	if criteria.StudyType != nil && !models.ValidStudyType(*criteria.StudyType) {
		return nil, 0, apperr.Invalid("invalid_study_type", "invalid study type")
	}
	return s.wrap(s.studyRepo.Search(criteria, page))
}

// MyStudies lists the studies where the user has an active membership.
func (s *StudyQueryService) MyStudies(userID uint, page repository.Page) ([]models.StudyResponse, int64, error) {
	return s.wrap(s.studyRepo.ListByMember(userID, page))
}

// ListPopular orders by participant count; the first page is cached.
func (s *StudyQueryService) ListPopular(page repository.Page) ([]models.StudyResponse, int64, error) {
	page = page.Clamp()
	if page.Number == 1 {
		// Cache hit serves the page with an approximate total.
		if items, ok := s.studyCache.GetPopular(); ok {
			return items, int64(len(items)), nil
		}
	}
	items, total, err := s.wrap(s.studyRepo.ListPopular(page))
	if err == nil && page.Number == 1 {
		_ = s.studyCache.SetPopular(items)
	}
	return items, total, err
}

func (s *StudyQueryService) wrap(studies []models.Study, total int64, err error) ([]models.StudyResponse, int64, error) {
	if err != nil {
		return nil, 0, apperr.Unavailable("study_list", err)
	}
	items := make([]models.StudyResponse, 0, len(studies))
	for i := range studies {
		items = append(items, studies[i].ToResponse())
	}
	return items, total, nil
}
