package repos

import (
	"github.com/yungbote/identity-backend/internal/data/repos/contact"
	"github.com/yungbote/identity-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ContactRepo = contact.ContactRepo
type LinkEventRepo = contact.LinkEventRepo

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	return contact.NewContactRepo(db, baseLog)
}
func NewLinkEventRepo(db *gorm.DB, baseLog *logger.Logger) LinkEventRepo {
	return contact.NewLinkEventRepo(db, baseLog)
}
