package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/KNICEX/momentum-monitor/internal/entity"
	"gorm.io/gorm"
)

// ErrDuplicate 同一根K线已经有告警记录
var ErrDuplicate = errors.New("alert already recorded")

type AlertRepo interface {
	Exists(ctx context.Context, symbol, timeframe string, barCloseTime int64) (bool, error)
	// Create 违反唯一约束时返回 ErrDuplicate
	Create(ctx context.Context, record entity.AlertRecord) (int64, error)
	// DeleteBefore 删除 CreatedAt < cutoff 的记录, 返回删除条数
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
	// LatestSince 每个 (Symbol, Timeframe) 在 since 之后最近一条记录
	LatestSince(ctx context.Context, since int64) ([]entity.AlertRecord, error)
}

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) AlertRepo {
	return &alertRepo{
		db: db,
	}
}

func (r *alertRepo) Exists(ctx context.Context, symbol, timeframe string, barCloseTime int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AlertRecord{}).
		Where("symbol = ? AND timeframe = ? AND bar_close_time = ?", symbol, timeframe, barCloseTime).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *alertRepo) Create(ctx context.Context, record entity.AlertRecord) (int64, error) {
	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return record.Id, nil
}

func (r *alertRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&entity.AlertRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *alertRepo) LatestSince(ctx context.Context, since int64) ([]entity.AlertRecord, error) {
	var records []entity.AlertRecord
	err := r.db.WithContext(ctx).Model(&entity.AlertRecord{}).
		Select("symbol, timeframe, MAX(created_at) AS created_at").
		Where("created_at >= ?", since).
		Group("symbol, timeframe").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 没开 TranslateError 时只能看驱动原始报错
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
