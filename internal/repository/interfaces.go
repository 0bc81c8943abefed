package repository

import (
	"time"

	"github.com/studylion/studypartner-backend/internal/models"
)

// Page describes an offset page request. Zero values fall back to the first
// page with the default size.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Clamp normalizes the page request into usable bounds.
func (p Page) Clamp() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// StudySearch is a composite filter; nil fields impose no constraint and the
// set fields are ANDed. Keyword matches title or description as a
// case-sensitive substring.
type StudySearch struct {
	Category  *string
	Location  *string
	StudyType *models.StudyType
	Status    *models.StudyStatus
	Keyword   *string
}

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByNickname(nickname string) (*models.User, error)
	Update(user *models.User) error
}

// StudyRepositoryInterface defines the contract for study repository
// operations. Every multi-entity mutation is one transaction inside the
// implementation; callers never see a half-applied state.
type StudyRepositoryInterface interface {
	// CreateWithLeader persists the study together with its leader membership
	// as one atomic unit.
	CreateWithLeader(study *models.Study, leader *models.StudyMember) error
	FindByID(id uint) (*models.Study, error)
	FindByIDWithMembers(id uint) (*models.Study, error)
	Save(study *models.Study) error
	// AddMemberIfCapacity inserts the membership and increments the
	// participant counter only while the counter is below capacity. It
	// reports false when the study is full, without inserting anything.
	AddMemberIfCapacity(studyID uint, member *models.StudyMember) (bool, error)
	// DeactivateMemberAndDecrement marks the membership inactive and
	// decrements the participant counter (floored at zero) atomically.
	DeactivateMemberAndDecrement(member *models.StudyMember) error
	// DeleteCascade removes the study with its memberships and posts and
	// detaches related notifications, all in one transaction.
	DeleteCascade(studyID uint) error
	// RecountParticipants recomputes the counter from active membership rows.
	// Out-of-band repair only; never part of join/leave.
	RecountParticipants(studyID uint) (int, error)

	List(page Page) ([]models.Study, int64, error)
	ListByCategory(category string, page Page) ([]models.Study, int64, error)
	ListByLocation(location string, page Page) ([]models.Study, int64, error)
	ListByStatus(status models.StudyStatus, page Page) ([]models.Study, int64, error)
	ListByMember(userID uint, page Page) ([]models.Study, int64, error)
	ListPopular(page Page) ([]models.Study, int64, error)
	Search(criteria StudySearch, page Page) ([]models.Study, int64, error)
}

// StudyMemberRepositoryInterface defines the contract for membership lookups.
type StudyMemberRepositoryInterface interface {
	FindActive(studyID, userID uint) (*models.StudyMember, error)
	ListByStudy(studyID uint) ([]models.StudyMember, error)
	ListActiveByStudy(studyID uint) ([]models.StudyMember, error)
	CountActive(studyID uint) (int64, error)
}

// StudyPostRepositoryInterface defines the contract for study post operations
type StudyPostRepositoryInterface interface {
	Create(post *models.StudyPost) error
	FindByID(id uint) (*models.StudyPost, error)
	Save(post *models.StudyPost) error
	ListByStudy(studyID uint, page Page) ([]models.StudyPost, int64, error)
	ListByStudyAndType(studyID uint, postType models.PostType, page Page) ([]models.StudyPost, int64, error)
	Search(keyword string, page Page) ([]models.StudyPost, int64, error)
}

// NotificationRepositoryInterface defines the contract for notification
// persistence.
type NotificationRepositoryInterface interface {
	Create(n *models.Notification) error
	FindByID(id uint) (*models.Notification, error)
	ListByUser(userID uint, page Page) ([]models.Notification, int64, error)
	ListUnread(userID uint) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(id uint, readAt time.Time) error
	MarkAllRead(userID uint, readAt time.Time) error
	Delete(id uint) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
