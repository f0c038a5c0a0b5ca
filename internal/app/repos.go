package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Repos struct {
	Accounts accounts.AccountRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Accounts: accounts.NewAccountRepo(db, log),
	}
}
