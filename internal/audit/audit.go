// Package audit stamps who changed an entity, when, and from which address.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Context is the stateless actor snapshot supplied with every command.
type Context struct {
	ActorID *uuid.UUID
	At      time.Time
	IP      string
}

// NewContext builds an audit context stamped at now.
func NewContext(actorID *uuid.UUID, ip string, now time.Time) Context {
	return Context{ActorID: actorID, At: now.UTC(), IP: ip}
}

func (c Context) at() time.Time {
	if c.At.IsZero() {
		return time.Now().UTC()
	}
	return c.At
}

// Stamp refreshes the update fields and, when justCreated is set by the
// caller that created the entity in this same operation, the creation fields.
func Stamp(fields *models.AuditFields, ctx Context, justCreated bool) {
	if fields == nil {
		return
	}
	at := ctx.at()
	if justCreated {
		fields.CreatedAt = at
		fields.CreatedBy = ctx.ActorID
		fields.CreatedIP = ctx.IP
	}
	fields.UpdatedAt = at
	fields.UpdatedBy = ctx.ActorID
	fields.UpdatedIP = ctx.IP
}
