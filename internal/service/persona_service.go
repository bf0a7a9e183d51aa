package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lovink/backend/ai"
	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
	"lovink/backend/pkg/cache"
	"lovink/backend/pkg/logger"
)

// PersonaService manages templates, custom personas and the partners a user
// has activated
type PersonaService struct {
	db       *gorm.DB
	analyzer ai.PortraitAnalyzer
	rosters  *cache.Cache[string, []community.Persona]
	log      *logger.Logger
}

// NewPersonaService creates the service. analyzer may be nil. rosters caches
// room rosters by user id; nil disables caching.
func NewPersonaService(db *gorm.DB, analyzer ai.PortraitAnalyzer, rosters *cache.Cache[string, []community.Persona], log *logger.Logger) *PersonaService {
	return &PersonaService{
		db:       db,
		analyzer: analyzer,
		rosters:  rosters,
		log:      log,
	}
}

// NewRosterCache builds the roster cache
func NewRosterCache(ttl time.Duration, maxItems int) *cache.Cache[string, []community.Persona] {
	return cache.New[string, []community.Persona](cache.Options{
		TTL:             ttl,
		CleanupInterval: time.Minute,
		MaxItems:        maxItems,
	})
}

func (s *PersonaService) forget(userID string) {
	if s.rosters != nil {
		s.rosters.Delete(userID)
	}
}

// List returns the templates and the user's own custom personas
func (s *PersonaService) List(ctx context.Context, userID string) ([]models.Persona, error) {
	var personas []models.Persona
	err := s.db.WithContext(ctx).
		Where("is_custom = ? OR owner_id = ?", false, userID).
		Order("is_custom, created_at, id").
		Find(&personas).Error
	if err != nil {
		return nil, err
	}
	return personas, nil
}

// Get returns a persona visible to userID
func (s *PersonaService) Get(ctx context.Context, userID, id string) (*models.Persona, error) {
	var p models.Persona
	err := s.db.WithContext(ctx).
		Where("id = ? AND (is_custom = ? OR owner_id = ?)", id, false, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonaNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a custom persona owned by userID
func (s *PersonaService) Create(ctx context.Context, userID string, req *models.CreatePersonaRequest) (*models.Persona, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidPersona
	}
	p := &models.Persona{
		ID:          "c-" + uuid.NewString(),
		Name:        name,
		Gender:      req.Gender,
		Description: req.Description,
		Tags:        req.Tags,
		Tone:        req.Tone,
		EmojiUsage:  req.EmojiUsage,
		Clinginess:  req.Clinginess,
		Interests:   req.Interests,
		ImageURL:    req.ImageURL,
		IsCustom:    true,
		OwnerID:     userID,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	s.log.WithUserID(userID).Info("custom persona created", "persona", p.ID)
	return p, nil
}

// Partners returns the user's active partners in activation order
func (s *PersonaService) Partners(ctx context.Context, userID string) ([]models.Partner, error) {
	var partners []models.Partner
	err := s.db.WithContext(ctx).
		Preload("Persona").
		Where("user_id = ?", userID).
		Order("position, created_at").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

// Activate adds a persona to the user's partners, or replaces its nickname
// and custom style when it is already active
func (s *PersonaService) Activate(ctx context.Context, userID, personaID string, req models.ActivatePartnerRequest) (*models.Partner, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	persona, err := s.Get(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}

	var partner models.Partner
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Partner{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		partner = models.Partner{
			UserID:           userID,
			PersonaID:        personaID,
			Nickname:         strings.TrimSpace(req.Nickname),
			CustomTone:       req.CustomTone,
			CustomEmojiUsage: req.CustomEmojiUsage,
			CustomClinginess: req.CustomClinginess,
			CustomInterests:  req.CustomInterests,
			Position:         int(count),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "persona_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nickname", "custom_tone", "custom_emoji_usage", "custom_clinginess", "custom_interests", "updated_at",
			}),
		}).Omit("Persona").Create(&partner).Error
	})
	if err != nil {
		return nil, fmt.Errorf("activate partner: %w", err)
	}
	// the insert may have been an update; read back the stored position
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		First(&partner).Error; err != nil {
		return nil, fmt.Errorf("reload partner: %w", err)
	}
	partner.Persona = *persona
	s.forget(userID)
	return &partner, nil
}

// Deactivate removes a persona from the user's room
func (s *PersonaService) Deactivate(ctx context.Context, userID, personaID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		Delete(&models.Partner{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPartnerNotFound
	}
	s.forget(userID)
	return nil
}

// Roster returns the room roster of userID: the active partners with their
// nicknames applied
func (s *PersonaService) Roster(ctx context.Context, userID string) ([]community.Persona, error) {
	load := func() ([]community.Persona, error) {
		partners, err := s.Partners(ctx, userID)
		if err != nil {
			return nil, err
		}
		roster := make([]community.Persona, len(partners))
		for i, p := range partners {
			roster[i] = p.ToCommunity()
		}
		return roster, nil
	}
	if s.rosters == nil {
		return load()
	}
	return s.rosters.GetOrLoad(userID, load)
}

// AnalyzePortrait suggests a persona for a photo. Any failure yields the
// fallback suggestion.
func (s *PersonaService) AnalyzePortrait(ctx context.Context, image string) models.PortraitAnalysis {
	if s.analyzer == nil {
		return models.FallbackPortraitAnalysis()
	}
	res, err := s.analyzer.AnalyzePortrait(ctx, image)
	if err != nil {
		s.log.WithContext(ctx).Warn("portrait analysis failed", "error", err.Error())
		return models.FallbackPortraitAnalysis()
	}
	return models.PortraitAnalysis{
		SuggestedName: res.SuggestedName,
		Traits:        res.Traits,
		Bio:           res.Bio,
	}
}
