package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string     `gorm:"not null" json:"-"`
	Name           string     `gorm:"not null" json:"name"`
	Nickname       string     `gorm:"uniqueIndex;not null" json:"nickname"`
	BirthDate      *time.Time `json:"birth_date"`
	Occupation     string     `json:"occupation"`
	EducationLevel string     `json:"education_level"`
	Status         string     `json:"status"`
}

type UserResponse struct {
	ID             uint       `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Nickname       string     `json:"nickname"`
	BirthDate      *time.Time `json:"birth_date"`
	Occupation     string     `json:"occupation"`
	EducationLevel string     `json:"education_level"`
	Status         string     `json:"status"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Nickname:       u.Nickname,
		BirthDate:      u.BirthDate,
		Occupation:     u.Occupation,
		EducationLevel: u.EducationLevel,
		Status:         u.Status,
	}
}
