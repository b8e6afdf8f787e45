package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/data/repos"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type Repos struct {
	Contact   repos.ContactRepo
	LinkEvent repos.LinkEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Contact:   repos.NewContactRepo(db, log),
		LinkEvent: repos.NewLinkEventRepo(db, log),
	}
}
