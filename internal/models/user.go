package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is the onboarding profile. It owns the community room and the
// active partners.
type UserProfile struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	Username   string    `json:"username" gorm:"not null"`
	Gender     string    `json:"gender"`
	Age        int       `json:"age"`
	AboutMe    string    `json:"aboutMe" gorm:"type:text"`
	ProfilePic string    `json:"profilePic,omitempty"`
	Theme      string    `json:"theme" gorm:"default:dark"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id to new profiles
func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// SessionRequest is the body of POST /api/v1/session. An empty ID creates
// a new profile.
type SessionRequest struct {
	ID         string `json:"id"`
	Username   string `json:"username" binding:"required"`
	Gender     string `json:"gender"`
	Age        int    `json:"age" binding:"omitempty,min=18,max=120"`
	AboutMe    string `json:"aboutMe"`
	ProfilePic string `json:"profilePic"`
	Theme      string `json:"theme"`
}

// SessionResponse carries the profile and its bearer token
type SessionResponse struct {
	Token   string      `json:"token"`
	Profile UserProfile `json:"profile"`
}

// CommunityRoomID is the room key of a user's community
func CommunityRoomID(userID string) string {
	return "community:" + userID
}

// DirectRoomID is the log key of the one-to-one chat between a user and a
// partner
func DirectRoomID(userID, personaID string) string {
	return "direct:" + userID + ":" + personaID
}
