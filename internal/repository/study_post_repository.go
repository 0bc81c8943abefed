package repository

import (
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/models"
)

type StudyPostRepository struct {
	db *gorm.DB
}

func NewStudyPostRepository(db *gorm.DB) *StudyPostRepository {
	return &StudyPostRepository{db: db}
}

func (r *StudyPostRepository) Create(post *models.StudyPost) error {
	return r.db.Create(post).Error
}

func (r *StudyPostRepository) FindByID(id uint) (*models.StudyPost, error) {
	var post models.StudyPost
	if err := r.db.Preload("Author").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *StudyPostRepository) Save(post *models.StudyPost) error {
	return r.db.Save(post).Error
}

func (r *StudyPostRepository) ListByStudy(studyID uint, page Page) ([]models.StudyPost, int64, error) {
	q := r.db.Model(&models.StudyPost{}).
		Where("study_id = ? AND status = ?", studyID, models.PostActive)
	return r.list(q, page)
}

func (r *StudyPostRepository) ListByStudyAndType(studyID uint, postType models.PostType, page Page) ([]models.StudyPost, int64, error) {
	q := r.db.Model(&models.StudyPost{}).
		Where("study_id = ? AND type = ? AND status = ?", studyID, postType, models.PostActive)
	return r.list(q, page)
}

func (r *StudyPostRepository) Search(keyword string, page Page) ([]models.StudyPost, int64, error) {
	kw := "%" + keyword + "%"
	q := r.db.Model(&models.StudyPost{}).
		Where("status = ? AND (title LIKE ? OR content LIKE ?)", models.PostActive, kw, kw)
	return r.list(q, page)
}

func (r *StudyPostRepository) list(q *gorm.DB, page Page) ([]models.StudyPost, int64, error) {
	page = page.Clamp()
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.StudyPost
	err := q.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Size).
		Preload("Author").
		Find(&posts).Error
	return posts, total, err
}
