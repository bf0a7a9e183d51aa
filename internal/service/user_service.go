package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"lovink/backend/internal/models"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	GenerateToken(userID, username string) (string, error)
}

// UserService handles profiles and sessions
type UserService struct {
	db     *gorm.DB
	tokens TokenIssuer
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, tokens TokenIssuer) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// StartSession creates the profile, or updates it when req.ID names an
// existing one, and issues a token for it
func (s *UserService) StartSession(ctx context.Context, req *models.SessionRequest) (*models.SessionResponse, error) {
	profile := models.UserProfile{
		ID:         req.ID,
		Username:   strings.TrimSpace(req.Username),
		Gender:     req.Gender,
		Age:        req.Age,
		AboutMe:    req.AboutMe,
		ProfilePic: req.ProfilePic,
		Theme:      req.Theme,
	}
	if profile.Theme == "" {
		profile.Theme = "dark"
	}

	db := s.db.WithContext(ctx)
	if req.ID != "" {
		var existing models.UserProfile
		err := db.First(&existing, "id = ?", req.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&profile).Error; err != nil {
				return nil, fmt.Errorf("create profile: %w", err)
			}
		case err != nil:
			return nil, err
		default:
			profile.CreatedAt = existing.CreatedAt
			if err := db.Save(&profile).Error; err != nil {
				return nil, fmt.Errorf("update profile: %w", err)
			}
		}
	} else if err := db.Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	token, err := s.tokens.GenerateToken(profile.ID, profile.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.SessionResponse{Token: token, Profile: profile}, nil
}

// GetProfile retrieves a profile by id
func (s *UserService) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	result := s.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}
