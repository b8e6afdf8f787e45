package aggregates

import (
	"fmt"
	"strings"

	types "github.com/yungbote/identity-backend/internal/domain"
)

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequirePrimary validates that a secondary's link target is a live primary.
func RequirePrimary(secondary, target *types.Contact) error {
	if secondary == nil {
		return InvariantError("missing secondary contact")
	}
	if target == nil {
		return InvariantError(fmt.Sprintf("contact %d links to missing primary", secondary.ID))
	}
	if !target.IsPrimary() {
		return InvariantError(fmt.Sprintf("contact %d links to contact %d which is not primary", secondary.ID, target.ID))
	}
	return nil
}

// RequireLinked validates the shape of a secondary before resolving it.
func RequireLinked(c *types.Contact) error {
	if c == nil {
		return InvariantError("missing contact")
	}
	if !c.LinkPrecedence.Valid() {
		return InvariantError(fmt.Sprintf("contact %d has unknown link precedence %q", c.ID, c.LinkPrecedence))
	}
	if c.IsPrimary() {
		if c.LinkedID != nil {
			return InvariantError(fmt.Sprintf("primary contact %d carries linked id %d", c.ID, *c.LinkedID))
		}
		return nil
	}
	if c.LinkedID == nil || *c.LinkedID <= 0 {
		return InvariantError(fmt.Sprintf("secondary contact %d has no linked primary", c.ID))
	}
	return nil
}
