package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserService(userRepo repository.UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found")
		}
		return nil, apperr.Unavailable("user_lookup", err)
	}
	return user, nil
}

type UpdateProfileInput struct {
	Name           *string    `json:"name"`
	Nickname       *string    `json:"nickname"`
	BirthDate      *time.Time `json:"birth_date"`
	Occupation     *string    `json:"occupation"`
	EducationLevel *string    `json:"education_level"`
}

// UpdateProfile applies a merge patch to the mutable profile fields.
// Identity (id, email) stays immutable.
func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		nickname := validation.NormalizeNickname(*input.Nickname)
		if !validation.ValidateNickname(nickname) {
			return nil, apperr.Invalid("invalid_nickname", "invalid nickname")
		}
		if nickname != user.Nickname {
			if _, err := s.userRepo.FindByNickname(nickname); err == nil {
				return nil, apperr.Conflict("nickname_taken", "nickname already exists")
			}
			user.Nickname = nickname
		}
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.BirthDate != nil {
		user.BirthDate = input.BirthDate
	}
	if input.Occupation != nil {
		user.Occupation = *input.Occupation
	}
	if input.EducationLevel != nil {
		user.EducationLevel = *input.EducationLevel
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperr.Unavailable("user_update", err)
	}
	return user, nil
}
