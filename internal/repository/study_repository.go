package repository

import (
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/models"
)

type StudyRepository struct {
	db *gorm.DB
}

func NewStudyRepository(db *gorm.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

func (r *StudyRepository) CreateWithLeader(study *models.Study, leader *models.StudyMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(study).Error; err != nil {
			return err
		}
		leader.StudyID = study.ID
		return tx.Create(leader).Error
	})
}

func (r *StudyRepository) FindByID(id uint) (*models.Study, error) {
	var study models.Study
	if err := r.db.Preload("Leader").First(&study, id).Error; err != nil {
		return nil, err
	}
	return &study, nil
}

func (r *StudyRepository) FindByIDWithMembers(id uint) (*models.Study, error) {
	var study models.Study
	err := r.db.Preload("Leader").
		Preload("Members", "status = ?", models.MemberActive).
		Preload("Members.User").
		First(&study, id).Error
	if err != nil {
		return nil, err
	}
	return &study, nil
}

func (r *StudyRepository) Save(study *models.Study) error {
	return r.db.Save(study).Error
}

func (r *StudyRepository) AddMemberIfCapacity(studyID uint, member *models.StudyMember) (bool, error) {
	joined := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The conditional update is the capacity gate: it only increments
		// while the counter is below capacity, so two racing joins cannot
		// both take the last slot.
		res := tx.Model(&models.Study{}).
			Where("id = ? AND current_participants < max_participants", studyID).
			UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Full, or deleted since the caller's precondition checks.
			var count int64
			if err := tx.Model(&models.Study{}).Where("id = ?", studyID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		}
		member.StudyID = studyID
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		joined = true
		return nil
	})
	return joined, err
}

func (r *StudyRepository) DeactivateMemberAndDecrement(member *models.StudyMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(member).Error; err != nil {
			return err
		}
		// Floor at zero; correct accounting never reaches it.
		return tx.Model(&models.Study{}).
			Where("id = ?", member.StudyID).
			UpdateColumn("current_participants", gorm.Expr("GREATEST(current_participants - 1, 0)")).Error
	})
}

func (r *StudyRepository) DeleteCascade(studyID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("study_id = ?", studyID).Delete(&models.StudyMember{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("study_id = ?", studyID).Delete(&models.StudyPost{}).Error; err != nil {
			return err
		}
		// Notifications outlive the study; just drop the reference.
		if err := tx.Model(&models.Notification{}).
			Where("study_id = ?", studyID).
			Update("study_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Study{}, studyID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *StudyRepository) RecountParticipants(studyID uint) (int, error) {
	var count int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.StudyMember{}).
			Where("study_id = ? AND status = ?", studyID, models.MemberActive).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Study{}).
			Where("id = ?", studyID).
			UpdateColumn("current_participants", count).Error
	})
	return int(count), err
}

func (r *StudyRepository) List(page Page) ([]models.Study, int64, error) {
	return r.list(r.db.Model(&models.Study{}), page)
}

func (r *StudyRepository) ListByCategory(category string, page Page) ([]models.Study, int64, error) {
	return r.list(r.db.Model(&models.Study{}).Where("category = ?", category), page)
}

func (r *StudyRepository) ListByLocation(location string, page Page) ([]models.Study, int64, error) {
	return r.list(r.db.Model(&models.Study{}).Where("location LIKE ?", "%"+location+"%"), page)
}

func (r *StudyRepository) ListByStatus(status models.StudyStatus, page Page) ([]models.Study, int64, error) {
	return r.list(r.db.Model(&models.Study{}).Where("status = ?", status), page)
}

func (r *StudyRepository) ListByMember(userID uint, page Page) ([]models.Study, int64, error) {
	q := r.db.Model(&models.Study{}).
		Joins("JOIN study_members ON study_members.study_id = studies.id").
		Where("study_members.user_id = ? AND study_members.status = ?", userID, models.MemberActive)
	return r.list(q, page)
}

func (r *StudyRepository) ListPopular(page Page) ([]models.Study, int64, error) {
	page = page.Clamp()
	q := r.db.Model(&models.Study{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var studies []models.Study
	err := q.Order("current_participants DESC, created_at DESC").
		Offset(page.Offset()).Limit(page.Size).
		Preload("Leader").
		Find(&studies).Error
	return studies, total, err
}

func (r *StudyRepository) Search(criteria StudySearch, page Page) ([]models.Study, int64, error) {
	q := r.db.Model(&models.Study{})
	if criteria.Category != nil {
		q = q.Where("category = ?", *criteria.Category)
	}
	if criteria.Location != nil {
		q = q.Where("location LIKE ?", "%"+*criteria.Location+"%")
	}
	if criteria.StudyType != nil {
		q = q.Where("study_type = ?", *criteria.StudyType)
	}
	if criteria.Status != nil {
		q = q.Where("status = ?", *criteria.Status)
	}
	if criteria.Keyword != nil {
		kw := "%" + *criteria.Keyword + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", kw, kw)
	}
	return r.list(q, page)
}

func (r *StudyRepository) list(q *gorm.DB, page Page) ([]models.Study, int64, error) {
	page = page.Clamp()
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var studies []models.Study
	err := q.Order("studies.created_at DESC").
		Offset(page.Offset()).Limit(page.Size).
		Preload("Leader").
		Find(&studies).Error
	return studies, total, err
}
