package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/identity-backend/internal/domain"
)

// ContactSeed describes one row for SeedContact. A zero CreatedAt means now.
type ContactSeed struct {
	Email     string
	Phone     string
	LinkedID  int64
	CreatedAt time.Time
	Deleted   bool
}

func SeedContact(tb testing.TB, ctx context.Context, tx *gorm.DB, seed ContactSeed) *types.Contact {
	tb.Helper()
	createdAt := seed.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	c := &types.Contact{
		Email:          PtrStringOrNil(seed.Email),
		PhoneNumber:    PtrStringOrNil(seed.Phone),
		LinkPrecedence: types.LinkPrecedencePrimary,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if seed.LinkedID > 0 {
		c.LinkPrecedence = types.LinkPrecedenceSecondary
		c.LinkedID = PtrInt64(seed.LinkedID)
	}
	if seed.Deleted {
		c.DeletedAt = gorm.DeletedAt{Time: createdAt, Valid: true}
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed contact: %v", err)
	}
	return c
}

// SeedPrimary is SeedContact for a primary created at the given time.
func SeedPrimary(tb testing.TB, ctx context.Context, tx *gorm.DB, email, phone string, createdAt time.Time) *types.Contact {
	tb.Helper()
	return SeedContact(tb, ctx, tx, ContactSeed{Email: email, Phone: phone, CreatedAt: createdAt})
}

func SeedSecondary(tb testing.TB, ctx context.Context, tx *gorm.DB, primaryID int64, email, phone string, createdAt time.Time) *types.Contact {
	tb.Helper()
	return SeedContact(tb, ctx, tx, ContactSeed{Email: email, Phone: phone, LinkedID: primaryID, CreatedAt: createdAt})
}

func PtrString(v string) *string { return &v }

func PtrStringOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func PtrInt64(v int64) *int64 { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
