package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service defines the in-app notification inbox for a user.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService builds the inbox service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view notifications")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByUser(ctx, listParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view notifications")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
