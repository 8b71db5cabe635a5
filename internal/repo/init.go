package repo

import (
	"fmt"

	"github.com/KNICEX/momentum-monitor/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.AlertRecord{}); err != nil {
		return err
	}
	// 没有唯一索引去重就不成立, 直接拒绝启动
	if !db.Migrator().HasIndex(&entity.AlertRecord{}, entity.AlertIndexUnique) {
		return fmt.Errorf("alert_records: missing unique index %s", entity.AlertIndexUnique)
	}
	return nil
}
