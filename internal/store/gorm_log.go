package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
)

// GormLog is the durable log of one room. Rows are ordered by their
// autoincrement sequence, so order is insertion order regardless of clocks.
type GormLog struct {
	db     *gorm.DB
	roomID string
}

// NewGormLog opens the log of roomID
func NewGormLog(db *gorm.DB, roomID string) *GormLog {
	return &GormLog{db: db, roomID: roomID}
}

func (l *GormLog) Append(ctx context.Context, msg community.Message) error {
	if err := l.db.WithContext(ctx).Create(models.NewCommunityMessage(l.roomID, msg)).Error; err != nil {
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (l *GormLog) Tail(ctx context.Context) (community.Message, bool, error) {
	var rows []models.CommunityMessage
	err := l.db.WithContext(ctx).
		Where("room_id = ?", l.roomID).
		Order("seq DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return community.Message{}, false, fmt.Errorf("query tail: %w", err)
	}
	if len(rows) == 0 {
		return community.Message{}, false, nil
	}
	return rows[0].ToCommunity(), true, nil
}

func (l *GormLog) Snapshot(ctx context.Context) ([]community.Message, error) {
	var rows []models.CommunityMessage
	err := l.db.WithContext(ctx).
		Where("room_id = ?", l.roomID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	out := make([]community.Message, len(rows))
	for i, row := range rows {
		out[i] = row.ToCommunity()
	}
	return out, nil
}
