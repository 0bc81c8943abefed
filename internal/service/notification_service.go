package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
)

// NotificationRetention is how long delivered notifications are kept before
// the sweep removes them.
const NotificationRetention = 30 * 24 * time.Hour

// NotificationService persists and serves the notification inbox. It is the
// Notifier the membership lifecycle enqueues into.
type NotificationService struct {
	notifRepo repository.NotificationRepositoryInterface
	userRepo  repository.UserRepositoryInterface
}

func NewNotificationService(
	notifRepo repository.NotificationRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, userRepo: userRepo}
}

// Notify enqueues a notification for the recipient. Implements Notifier.
func (s *NotificationService) Notify(userID uint, title, message, notifType string, studyID *uint) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user_not_found", "user not found")
		}
		return apperr.Unavailable("user_lookup", err)
	}

	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
		Status:  models.NotificationUnread,
		StudyID: studyID,
	}
	if err := s.notifRepo.Create(n); err != nil {
		return apperr.Unavailable("notification_create", err)
	}
	return nil
}

func (s *NotificationService) ListForUser(userID uint, page repository.Page) ([]models.Notification, int64, error) {
	notifications, total, err := s.notifRepo.ListByUser(userID, page)
	if err != nil {
		return nil, 0, apperr.Unavailable("notification_list", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) ListUnread(userID uint) ([]models.Notification, error) {
	notifications, err := s.notifRepo.ListUnread(userID)
	if err != nil {
		return nil, apperr.Unavailable("notification_list", err)
	}
	return notifications, nil
}

func (s *NotificationService) CountUnread(userID uint) (int64, error) {
	count, err := s.notifRepo.CountUnread(userID)
	if err != nil {
		return 0, apperr.Unavailable("notification_count", err)
	}
	return count, nil
}

// MarkRead flips one notification to read. Owner-only.
func (s *NotificationService) MarkRead(notificationID, userID uint) error {
	n, err := s.findNotification(notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.Forbidden("not_owner", "cannot read another user's notification")
	}
	if err := s.notifRepo.MarkRead(notificationID, time.Now()); err != nil {
		return apperr.Unavailable("notification_update", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	if err := s.notifRepo.MarkAllRead(userID, time.Now()); err != nil {
		return apperr.Unavailable("notification_update", err)
	}
	return nil
}

// Delete removes one notification. Owner-only.
func (s *NotificationService) Delete(notificationID, userID uint) error {
	n, err := s.findNotification(notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.Forbidden("not_owner", "cannot delete another user's notification")
	}
	if err := s.notifRepo.Delete(notificationID); err != nil {
		return apperr.Unavailable("notification_delete", err)
	}
	return nil
}

// DeleteOld sweeps notifications older than the retention window.
func (s *NotificationService) DeleteOld() (int64, error) {
	removed, err := s.notifRepo.DeleteOlderThan(time.Now().Add(-NotificationRetention))
	if err != nil {
		return 0, apperr.Unavailable("notification_sweep", err)
	}
	return removed, nil
}

func (s *NotificationService) findNotification(id uint) (*models.Notification, error) {
	n, err := s.notifRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("notification_not_found", "notification not found")
		}
		return nil, apperr.Unavailable("notification_lookup", err)
	}
	return n, nil
}
