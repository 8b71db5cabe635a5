package ioc

import (
	"fmt"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/repo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(fmt.Errorf("open sqlite %s: %w", path, err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	// sqlite 单写, 多连接只会换来 database is locked
	sqlDB.SetMaxOpenConns(1)

	if err = repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}

func InitAlertRepo(cfg config.StorageConfig) repo.AlertRepo {
	switch cfg.Driver {
	case config.DriverRedis:
		return repo.NewRedisAlertRepo(InitRedis(cfg.Redis), cfg.Redis.Prefix)
	default:
		return repo.NewAlertRepo(InitDB(cfg.SQLitePath))
	}
}
