package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/validation"
)

type AuthService struct {
	userRepo repository.UserRepositoryInterface
}

func NewAuthService(userRepo repository.UserRepositoryInterface) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

func (s *AuthService) Register(input RegisterInput) (*AuthResponse, error) {
	email := validation.NormalizeEmail(input.Email)
	if !validation.ValidateEmail(email) {
		return nil, apperr.Invalid("invalid_email", "invalid email address")
	}
	nickname := validation.NormalizeNickname(input.Nickname)
	if !validation.ValidateNickname(nickname) {
		return nil, apperr.Invalid("invalid_nickname", "invalid nickname")
	}
	if !validation.ValidatePassword(input.Password) {
		return nil, apperr.Invalid("weak_password", "password is too short")
	}

	// Check if user exists
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, apperr.Conflict("email_taken", "email already exists")
	}
	if _, err := s.userRepo.FindByNickname(nickname); err == nil {
		return nil, apperr.Conflict("nickname_taken", "nickname already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         input.Name,
		Nickname:     nickname,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, apperr.Unavailable("user_create", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(validation.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("invalid_credentials", "invalid credentials")
		}
		return nil, apperr.Unavailable("user_lookup", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperr.Unauthenticated("invalid_credentials", "invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"nickname": user.Nickname,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
