package models

import (
	"time"

	"gorm.io/gorm"
)

type StudyStatus string

const (
	StudyRecruiting StudyStatus = "recruiting"
	StudyActive     StudyStatus = "active"
	StudyInProgress StudyStatus = "in_progress"
	StudyCompleted  StudyStatus = "completed"
	StudyCancelled  StudyStatus = "cancelled"
)

// ValidStudyStatus reports whether s is one of the wire-contract status literals.
func ValidStudyStatus(s StudyStatus) bool {
	switch s {
	case StudyRecruiting, StudyActive, StudyInProgress, StudyCompleted, StudyCancelled:
		return true
	}
	return false
}

// Open reports whether new members may join a study in this status.
func (s StudyStatus) Open() bool {
	return s == StudyRecruiting || s == StudyActive
}

type StudyType string

const (
	StudyOnline  StudyType = "online"
	StudyOffline StudyType = "offline"
	StudyHybrid  StudyType = "hybrid"
)

func ValidStudyType(t StudyType) bool {
	return t == StudyOnline || t == StudyOffline || t == StudyHybrid
}

const (
	MinParticipants = 1
	MaxParticipants = 100
)

type Study struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string      `gorm:"size:200;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Category    string      `gorm:"size:100;not null;index" json:"category"`
	Location    string      `gorm:"size:200;not null" json:"location"`
	StudyType   StudyType   `gorm:"type:varchar(20);not null" json:"study_type"`
	Status      StudyStatus `gorm:"type:varchar(20);not null;default:'recruiting';index" json:"status"`

	// MaxParticipants bounds CurrentParticipants, which must always equal the
	// number of memberships with status=active. The counter is mutated only
	// inside the same transaction as the membership row change.
	MaxParticipants     int `gorm:"not null" json:"max_participants"`
	CurrentParticipants int `gorm:"not null;default:0" json:"current_participants"`

	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	MeetingLink string    `json:"meeting_link"`
	ContactInfo string    `json:"contact_info"`

	LeaderID uint `gorm:"not null;index" json:"leader_id"`

	// Associations
	Leader  User          `gorm:"foreignKey:LeaderID" json:"leader"`
	Members []StudyMember `gorm:"foreignKey:StudyID" json:"members,omitempty"`
	Posts   []StudyPost   `gorm:"foreignKey:StudyID" json:"-"`
}

func (s *Study) IsFull() bool {
	return s.CurrentParticipants >= s.MaxParticipants
}

type MemberRole string

const (
	RoleLeader MemberRole = "leader"
	RoleMember MemberRole = "member"
)

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberBanned   MemberStatus = "banned"
)

// StudyMember links one study and one user. A leave keeps the row and flips
// status to inactive, so a user's membership history stays queryable; at most
// one row per (study, user) is active at a time.
type StudyMember struct {
	ID       uint         `gorm:"primarykey" json:"id"`
	StudyID  uint         `gorm:"not null;index:idx_study_user" json:"study_id"`
	UserID   uint         `gorm:"not null;index:idx_study_user" json:"user_id"`
	Role     MemberRole   `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status   MemberStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	JoinedAt time.Time    `gorm:"autoCreateTime" json:"joined_at"`
	LeftAt   *time.Time   `json:"left_at"`

	User  User  `gorm:"foreignKey:UserID" json:"user"`
	Study Study `gorm:"foreignKey:StudyID" json:"-"`
}

type StudyMemberResponse struct {
	ID       uint         `json:"id"`
	User     UserResponse `json:"user"`
	Role     MemberRole   `json:"role"`
	Status   MemberStatus `json:"status"`
	JoinedAt time.Time    `json:"joined_at"`
}

func (m *StudyMember) ToResponse() StudyMemberResponse {
	return StudyMemberResponse{
		ID:       m.ID,
		User:     m.User.ToResponse(),
		Role:     m.Role,
		Status:   m.Status,
		JoinedAt: m.JoinedAt,
	}
}

type StudyResponse struct {
	ID                  uint                  `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Category            string                `json:"category"`
	Location            string                `json:"location"`
	StudyType           StudyType             `json:"study_type"`
	Status              StudyStatus           `json:"status"`
	MaxParticipants     int                   `json:"max_participants"`
	CurrentParticipants int                   `json:"current_participants"`
	StartDate           time.Time             `json:"start_date"`
	EndDate             time.Time             `json:"end_date"`
	MeetingLink         string                `json:"meeting_link"`
	ContactInfo         string                `json:"contact_info"`
	Leader              UserResponse          `json:"leader"`
	Members             []StudyMemberResponse `json:"members,omitempty"`
	IsMember            bool                  `json:"is_member"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

func (s *Study) ToResponse() StudyResponse {
	resp := StudyResponse{
		ID:                  s.ID,
		Title:               s.Title,
		Description:         s.Description,
		Category:            s.Category,
		Location:            s.Location,
		StudyType:           s.StudyType,
		Status:              s.Status,
		MaxParticipants:     s.MaxParticipants,
		CurrentParticipants: s.CurrentParticipants,
		StartDate:           s.StartDate,
		EndDate:             s.EndDate,
		MeetingLink:         s.MeetingLink,
		ContactInfo:         s.ContactInfo,
		Leader:              s.Leader.ToResponse(),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	for i := range s.Members {
		resp.Members = append(resp.Members, s.Members[i].ToResponse())
	}
	return resp
}
