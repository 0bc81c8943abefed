package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) FindByID(id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ListByUser(userID uint, page Page) ([]models.Notification, int64, error) {
	page = page.Clamp()
	q := r.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var notifications []models.Notification
	err := q.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepository) ListUnread(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(id uint, readAt time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": readAt,
		}).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint, readAt time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": readAt,
		}).Error
}

func (r *NotificationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Notification{}, id).Error
}

func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
