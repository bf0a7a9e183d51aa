package service

import (
	"errors"
	"net/http"

	"lovink/backend/internal/community"
	apperrors "lovink/backend/pkg/errors"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrPersonaNotFound = errors.New("persona not found")
	ErrPartnerNotFound = errors.New("partner not active")
	ErrInvalidPersona  = errors.New("persona name is required")
	ErrNotRoomOwner    = errors.New("room belongs to another user")
	ErrShuttingDown    = errors.New("service is shutting down")
	ErrInvalidStyle    = errors.New("invalid partner style")

	// ErrChatBusy rejects a one-to-one send while the partner is still
	// answering the previous one
	ErrChatBusy = apperrors.NewConflictError("CHAT_BUSY", "your partner is still typing")
)

func init() {
	apperrors.Register(ErrProfileNotFound, http.StatusNotFound, "PROFILE_NOT_FOUND")
	apperrors.Register(ErrPersonaNotFound, http.StatusNotFound, "PERSONA_NOT_FOUND")
	apperrors.Register(ErrPartnerNotFound, http.StatusNotFound, "PARTNER_NOT_FOUND")
	apperrors.Register(ErrInvalidPersona, http.StatusBadRequest, "INVALID_PERSONA")
	apperrors.Register(ErrNotRoomOwner, http.StatusForbidden, "NOT_ROOM_OWNER")
	apperrors.Register(ErrShuttingDown, http.StatusServiceUnavailable, "SHUTTING_DOWN")
	apperrors.Register(ErrInvalidStyle, http.StatusBadRequest, "INVALID_PARTNER_STYLE")
	apperrors.Register(community.ErrEmptyMessage, http.StatusBadRequest, "EMPTY_MESSAGE")
	apperrors.Register(community.ErrRoomClosed, http.StatusServiceUnavailable, "ROOM_CLOSED")
}
