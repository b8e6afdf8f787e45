package contact

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/identity-backend/internal/domain"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type ContactRepo interface {
	FindByEmailOrPhone(dbc dbctx.Context, email, phone string) ([]*types.Contact, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Contact, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Contact, error)
	Create(dbc dbctx.Context, rows []*types.Contact) ([]*types.Contact, error)
	Demote(dbc dbctx.Context, id, primaryID int64, at time.Time) (bool, error)
	Relink(dbc dbctx.Context, fromPrimaryID, toPrimaryID int64, at time.Time) (int64, error)
	ListCluster(dbc dbctx.Context, primaryID int64) ([]*types.Contact, error)
	ListAll(dbc dbctx.Context, afterID int64, limit int) ([]*types.Contact, error)
}

type contactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	repoLog := baseLog.With("repo", "ContactRepo")
	return &contactRepo{db: db, log: repoLog}
}

// FindByEmailOrPhone returns live contacts sharing either value. An empty
// value does not participate in the match. Inside a Postgres transaction the
// rows stay locked until commit.
func (r *contactRepo) FindByEmailOrPhone(dbc dbctx.Context, email, phone string) ([]*types.Contact, error) {
	var results []*types.Contact

	q := dbc.DB(r.db).Model(&types.Contact{})
	switch {
	case email != "" && phone != "":
		q = q.Where("email = ? OR phone_number = ?", email, phone)
	case email != "":
		q = q.Where("email = ?", email)
	case phone != "":
		q = q.Where("phone_number = ?", phone)
	default:
		return results, nil
	}
	q = r.lockForUpdate(dbc, q)

	if err := q.Order("created_at ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contactRepo) GetByID(dbc dbctx.Context, id int64) (*types.Contact, error) {
	if id <= 0 {
		return nil, nil
	}
	var row types.Contact
	q := r.lockForUpdate(dbc, dbc.DB(r.db))
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *contactRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Contact, error) {
	var results []*types.Contact
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contactRepo) Create(dbc dbctx.Context, rows []*types.Contact) ([]*types.Contact, error) {
	if len(rows) == 0 {
		return []*types.Contact{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Demote turns a primary into a secondary of primaryID. It reports false
// without error when id is no longer a live primary.
func (r *contactRepo) Demote(dbc dbctx.Context, id, primaryID int64, at time.Time) (bool, error) {
	if id <= 0 || primaryID <= 0 || id == primaryID {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Contact{}).
		Where("id = ? AND link_precedence = ?", id, types.LinkPrecedencePrimary).
		Updates(map[string]interface{}{
			"link_precedence": types.LinkPrecedenceSecondary,
			"linked_id":       primaryID,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Relink moves every contact linked to fromPrimaryID over to toPrimaryID.
// Soft-deleted rows are moved too so no chain survives a later restore.
func (r *contactRepo) Relink(dbc dbctx.Context, fromPrimaryID, toPrimaryID int64, at time.Time) (int64, error) {
	if fromPrimaryID <= 0 || toPrimaryID <= 0 || fromPrimaryID == toPrimaryID {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Unscoped().
		Model(&types.Contact{}).
		Where("linked_id = ?", fromPrimaryID).
		Updates(map[string]interface{}{
			"linked_id":  toPrimaryID,
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *contactRepo) ListCluster(dbc dbctx.Context, primaryID int64) ([]*types.Contact, error) {
	var results []*types.Contact
	if primaryID <= 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id = ? OR linked_id = ?", primaryID, primaryID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contactRepo) ListAll(dbc dbctx.Context, afterID int64, limit int) ([]*types.Contact, error) {
	if limit <= 0 {
		limit = 500
	}
	var results []*types.Contact
	if err := dbc.DB(r.db).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SQLite takes its write lock at BEGIN, so row locks only apply on Postgres.
func (r *contactRepo) lockForUpdate(dbc dbctx.Context, q *gorm.DB) *gorm.DB {
	if dbc.Tx == nil || q.Dialector == nil || q.Dialector.Name() != "postgres" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
