package contact

import (
	"gorm.io/gorm"

	types "github.com/yungbote/identity-backend/internal/domain"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type LinkEventRepo interface {
	Create(dbc dbctx.Context, rows []*types.ContactLinkEvent) error
	ListByContacts(dbc dbctx.Context, contactIDs []int64, limit int) ([]*types.ContactLinkEvent, error)
}

type linkEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkEventRepo(db *gorm.DB, baseLog *logger.Logger) LinkEventRepo {
	return &linkEventRepo{db: db, log: baseLog.With("repo", "LinkEventRepo")}
}

func (r *linkEventRepo) Create(dbc dbctx.Context, rows []*types.ContactLinkEvent) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

// ListByContacts returns events that touched any of the given contacts,
// either as subject or as the primary they were linked to.
func (r *linkEventRepo) ListByContacts(dbc dbctx.Context, contactIDs []int64, limit int) ([]*types.ContactLinkEvent, error) {
	var results []*types.ContactLinkEvent
	if len(contactIDs) == 0 {
		return results, nil
	}
	if limit <= 0 {
		limit = 200
	}
	if err := dbc.DB(r.db).
		Where("contact_id IN ? OR primary_id IN ?", contactIDs, contactIDs).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
