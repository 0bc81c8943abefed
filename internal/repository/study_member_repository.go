package repository

import (
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/models"
)

type StudyMemberRepository struct {
	db *gorm.DB
}

func NewStudyMemberRepository(db *gorm.DB) *StudyMemberRepository {
	return &StudyMemberRepository{db: db}
}

func (r *StudyMemberRepository) FindActive(studyID, userID uint) (*models.StudyMember, error) {
	var member models.StudyMember
	err := r.db.Where("study_id = ? AND user_id = ? AND status = ?", studyID, userID, models.MemberActive).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *StudyMemberRepository) ListByStudy(studyID uint) ([]models.StudyMember, error) {
	var members []models.StudyMember
	err := r.db.Where("study_id = ?", studyID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *StudyMemberRepository) ListActiveByStudy(studyID uint) ([]models.StudyMember, error) {
	var members []models.StudyMember
	err := r.db.Where("study_id = ? AND status = ?", studyID, models.MemberActive).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *StudyMemberRepository) CountActive(studyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.StudyMember{}).
		Where("study_id = ? AND status = ?", studyID, models.MemberActive).
		Count(&count).Error
	return count, err
}
