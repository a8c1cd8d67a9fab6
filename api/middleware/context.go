package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxAnonymousID contextKey = "anonymous_id"
	ctxClientIP    contextKey = "client_ip"
	ctxRequestID   contextKey = "request_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// UserUUIDFromContext returns the authenticated user, or nil for guests.
func UserUUIDFromContext(ctx context.Context) *uuid.UUID {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func AnonymousIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAnonymousID).(string); ok {
		return v
	}
	return ""
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithAnonymousID injects the guest session identifier into the context.
func WithAnonymousID(ctx context.Context, anonymousID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAnonymousID, anonymousID)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClientIP, ip)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRequestID, requestID)
}
