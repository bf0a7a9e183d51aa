// Package store holds the persistent ConversationLog implementations and
// the schema bootstrap.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
	"lovink/backend/pkg/logger"
)

// Migrate creates or updates the tables and seeds the persona templates
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.UserProfile{},
		&models.Persona{},
		&models.Partner{},
		&models.CommunityMessage{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedTemplates(ctx, db)
}

// SeedTemplates inserts the template personas that are missing. Existing
// rows are left alone.
func SeedTemplates(ctx context.Context, db *gorm.DB) error {
	templates := make([]models.Persona, len(models.Templates))
	copy(templates, models.Templates)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&templates).Error
	if err != nil {
		return fmt.Errorf("seed persona templates: %w", err)
	}
	return nil
}

// LogFactory opens the log of one room
type LogFactory func(roomID string) community.Log

// NewLogFactory returns a factory backed by Redis when rdb is set and by the
// database otherwise
func NewLogFactory(db *gorm.DB, rdb *redis.Client, opts RedisOptions, log *logger.Logger) LogFactory {
	if rdb != nil {
		log.Info("conversation logs in redis", "ttl", opts.TTL.String())
		return func(roomID string) community.Log {
			return NewRedisLog(rdb, roomID, opts)
		}
	}
	log.Info("conversation logs in database")
	return func(roomID string) community.Log {
		return NewGormLog(db, roomID)
	}
}
