package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     *userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newNotificationListResponse(result))
	}
}

// MarkNotificationRead flags one of the caller's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		notificationID, err := validators.ParseURLParamUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), *userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

type notificationResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type notificationListResponse struct {
	Items  []notificationResponse `json:"items"`
	Cursor string                 `json:"cursor,omitempty"`
}

func newNotificationListResponse(result *notifications.ListResult) notificationListResponse {
	resp := notificationListResponse{Items: []notificationResponse{}}
	if result == nil {
		return resp
	}
	resp.Cursor = result.Cursor
	for _, n := range result.Items {
		resp.Items = append(resp.Items, newNotificationResponse(n))
	}
	return resp
}

func newNotificationResponse(n models.Notification) notificationResponse {
	return notificationResponse{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		ReferenceID: n.ReferenceID,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}
