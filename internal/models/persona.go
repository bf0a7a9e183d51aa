package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"lovink/backend/internal/community"
)

// Persona is a chat partner: one of the seeded templates or a custom one
// created by a user
type Persona struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Name        string    `json:"name" gorm:"not null"`
	Gender      string    `json:"gender"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags" gorm:"serializer:json"`
	Tone        string    `json:"tone"`
	EmojiUsage  string    `json:"emojiUsage"`
	Clinginess  string    `json:"clinginess"`
	Interests   []string  `json:"interests" gorm:"serializer:json"`
	ImageURL    string    `json:"imageUrl"`
	IsCustom    bool      `json:"isCustom" gorm:"default:false"`
	OwnerID     string    `json:"ownerId,omitempty" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Partner activates a persona for a user. The nickname and the custom style
// fields override the persona defaults wherever the partner speaks.
type Partner struct {
	UserID           string    `json:"userId" gorm:"primaryKey;size:64"`
	PersonaID        string    `json:"personaId" gorm:"primaryKey;size:64"`
	Nickname         string    `json:"nickname"`
	CustomTone       string    `json:"customTone,omitempty"`
	CustomEmojiUsage string    `json:"customEmojiUsage,omitempty"`
	CustomClinginess string    `json:"customClinginess,omitempty"`
	CustomInterests  []string  `json:"customInterests,omitempty" gorm:"serializer:json"`
	Position         int       `json:"position"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Persona          Persona   `json:"persona" gorm:"foreignKey:PersonaID"`
}

// Allowed values of the partner style fields. Empty keeps the default.
var (
	Tones            = []string{"sweet", "teasing", "chaotic", "formal", "shy", "confident"}
	EmojiLevels      = []string{"few", "normal", "heavy"}
	ClinginessLevels = []string{"low", "medium", "high"}
)

// CreatePersonaRequest is the body of POST /api/v1/personas
type CreatePersonaRequest struct {
	Name        string   `json:"name" binding:"required"`
	Gender      string   `json:"gender"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Tone        string   `json:"tone"`
	EmojiUsage  string   `json:"emojiUsage"`
	Clinginess  string   `json:"clinginess"`
	Interests   []string `json:"interests"`
	ImageURL    string   `json:"imageUrl"`
}

// AnalyzePortraitRequest carries a data URL or bare base64 JPEG
type AnalyzePortraitRequest struct {
	Image string `json:"image" binding:"required"`
}

// PortraitAnalysis is the suggestion derived from a portrait
type PortraitAnalysis struct {
	SuggestedName string   `json:"suggestedName"`
	Traits        []string `json:"traits"`
	Bio           string   `json:"bio"`
}

// FallbackPortraitAnalysis is returned when analysis fails
func FallbackPortraitAnalysis() PortraitAnalysis {
	return PortraitAnalysis{
		SuggestedName: "Mystery Partner",
		Traits:        []string{"Deep", "Caring", "Quiet"},
		Bio:           "Waiting for you.",
	}
}

// ActivatePartnerRequest is the body of PUT /api/v1/partners/:personaId.
// It activates the partner or edits its nickname and style.
type ActivatePartnerRequest struct {
	Nickname         string   `json:"nickname"`
	CustomTone       string   `json:"customTone"`
	CustomEmojiUsage string   `json:"customEmojiUsage"`
	CustomClinginess string   `json:"customClinginess"`
	CustomInterests  []string `json:"customInterests"`
}

// Validate checks the style fields against the allowed values
func (r ActivatePartnerRequest) Validate() error {
	check := func(field, v string, allowed []string) error {
		if v == "" || slices.Contains(allowed, v) {
			return nil
		}
		return fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
	}
	return errors.Join(
		check("customTone", r.CustomTone, Tones),
		check("customEmojiUsage", r.CustomEmojiUsage, EmojiLevels),
		check("customClinginess", r.CustomClinginess, ClinginessLevels),
	)
}

// ToCommunity converts the persona to a room roster entry
func (p Persona) ToCommunity() community.Persona {
	return community.Persona{
		ID:          p.ID,
		DisplayName: p.Name,
		Description: p.Description,
		Tags:        append([]string(nil), p.Tags...),
		Tone:        p.Tone,
		EmojiUsage:  p.EmojiUsage,
		Clinginess:  p.Clinginess,
		Interests:   append([]string(nil), p.Interests...),
	}
}

// ToCommunity converts an active partner, applying the nickname and the
// custom style
func (p Partner) ToCommunity() community.Persona {
	out := p.Persona.ToCommunity()
	if p.Nickname != "" {
		out.DisplayName = p.Nickname
	}
	if p.CustomTone != "" {
		out.Tone = p.CustomTone
	}
	if p.CustomEmojiUsage != "" {
		out.EmojiUsage = p.CustomEmojiUsage
	}
	if p.CustomClinginess != "" {
		out.Clinginess = p.CustomClinginess
	}
	if len(p.CustomInterests) > 0 {
		out.Interests = append([]string(nil), p.CustomInterests...)
	}
	return out
}
