package models

import (
	"time"

	"gorm.io/gorm"
)

type PostType string

const (
	PostGeneral  PostType = "general"
	PostNotice   PostType = "notice"
	PostQuestion PostType = "question"
	PostResource PostType = "resource"
)

func ValidPostType(t PostType) bool {
	switch t {
	case PostGeneral, PostNotice, PostQuestion, PostResource:
		return true
	}
	return false
}

type PostStatus string

const (
	PostActive  PostStatus = "active"
	PostDeleted PostStatus = "deleted"
)

// StudyPost is soft-deleted: delete flips status to deleted and the row stays.
type StudyPost struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	StudyID  uint       `gorm:"not null;index" json:"study_id"`
	AuthorID uint       `gorm:"not null" json:"author_id"`
	Title    string     `gorm:"size:200;not null" json:"title"`
	Content  string     `gorm:"type:text;not null" json:"content"`
	Type     PostType   `gorm:"type:varchar(20);not null;default:'general'" json:"type"`
	Status   PostStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	// Set when an object has been uploaded for a resource post.
	AttachmentURL string `json:"attachment_url,omitempty"`

	Author User  `gorm:"foreignKey:AuthorID" json:"author"`
	Study  Study `gorm:"foreignKey:StudyID" json:"-"`
}

type StudyPostResponse struct {
	ID            uint         `json:"id"`
	StudyID       uint         `json:"study_id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Type          PostType     `json:"type"`
	Status        PostStatus   `json:"status"`
	AttachmentURL string       `json:"attachment_url,omitempty"`
	Author        UserResponse `json:"author"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (p *StudyPost) ToResponse() StudyPostResponse {
	return StudyPostResponse{
		ID:            p.ID,
		StudyID:       p.StudyID,
		Title:         p.Title,
		Content:       p.Content,
		Type:          p.Type,
		Status:        p.Status,
		AttachmentURL: p.AttachmentURL,
		Author:        p.Author.ToResponse(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
