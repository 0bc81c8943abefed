package models

import "time"

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification event type tags. The column is free-form; these are the tags the
// membership lifecycle emits.
const (
	NotifyStudyJoin   = "study_join"
	NotifyStudyLeave  = "study_leave"
	NotifyStudyUpdate = "study_update"
	NotifyStudyCancel = "study_cancel"
)

type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID  uint               `gorm:"not null;index" json:"user_id"`
	Title   string             `gorm:"not null" json:"title"`
	Message string             `gorm:"type:text" json:"message"`
	Type    string             `gorm:"not null" json:"type"`
	Status  NotificationStatus `gorm:"type:varchar(10);not null;default:'unread'" json:"status"`

	// StudyID is detached (set NULL) when the related study is deleted.
	StudyID    *uint      `gorm:"index" json:"study_id"`
	RelatedURL string     `json:"related_url,omitempty"`
	ReadAt     *time.Time `json:"read_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
