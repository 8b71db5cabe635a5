package entity

// AlertRecord 已发送的告警, (Symbol, Timeframe, BarCloseTime) 唯一
type AlertRecord struct {
	Id             int64  `gorm:"primaryKey;autoIncrement"`
	Symbol         string `gorm:"size:32;uniqueIndex:idx_alert_bar;index:idx_alert_symbol_time,priority:1"`
	Timeframe      string `gorm:"size:8;uniqueIndex:idx_alert_bar"`
	BarCloseTime   int64  `gorm:"uniqueIndex:idx_alert_bar;index:idx_alert_symbol_time,priority:2"` // unix ms
	Signature      string `gorm:"size:64;index"`
	Direction      string
	PriceChangePct string
	VolumeSpikePct string
	CreatedAt      int64 `gorm:"index;autoCreateTime:false"` // unix ms, 由调用方的时钟写入
}

// AlertIndexUnique 去重依赖的唯一索引, 启动时校验
const AlertIndexUnique = "idx_alert_bar"
