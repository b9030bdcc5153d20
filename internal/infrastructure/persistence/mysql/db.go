package mysql

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/stockledger/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 1. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 2. log_sql开启时打印SQL
// 3. auto_migrate开启时自动迁移表结构
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Database.LogSQL {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // 唯一索引冲突转换为gorm.ErrDuplicatedKey
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info("数据库连接成功",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	// 生产环境应使用版本化的迁移脚本
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductStockModel{},
		&ReservationModel{},
		&AuditLogModel{},
		&AdjustmentModel{},
		&AlertModel{},
	)
}

// ProductStockModel 商品库存表
// ID由商品目录分配，不自增；version用于乐观锁
type ProductStockModel struct {
	ID                   uint                `gorm:"primaryKey;autoIncrement:false"`
	SKU                  string              `gorm:"size:64;index;comment:SKU"`
	Category             string              `gorm:"size:64;index;comment:类目（告警阈值覆盖）"`
	PhysicalStock        int                 `gorm:"not null;default:0;comment:实物库存"`
	ReservedStock        int                 `gorm:"not null;default:0;comment:已预占库存"`
	InitialPhysicalStock int                 `gorm:"not null;default:0;comment:建档时实物库存"`
	ReorderPoint         int                 `gorm:"not null;default:0;comment:再订货点"`
	ReorderQuantity      int                 `gorm:"not null;default:0;comment:建议补货量"`
	MaxStockLevel        int                 `gorm:"not null;default:0;comment:库存上限(0不限)"`
	LowStockPercent      decimal.NullDecimal `gorm:"type:decimal(7,3);comment:低库存阈值百分比覆盖"`
	OverstockPercent     decimal.NullDecimal `gorm:"type:decimal(7,3);comment:积压阈值百分比覆盖"`
	Status               string              `gorm:"size:20;index;not null;comment:库存状态"`
	Version              int64               `gorm:"not null;default:1;comment:乐观锁版本"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (ProductStockModel) TableName() string {
	return "product_stocks"
}

// ReservationModel 订单预占表
type ReservationModel struct {
	ID                uint       `gorm:"primaryKey"`
	ProductID         uint       `gorm:"index:idx_product_order;not null"`
	OrderID           string     `gorm:"index:idx_product_order;size:64;not null;comment:订单号"`
	Quantity          int        `gorm:"not null;comment:预占总量"`
	FulfilledQuantity int        `gorm:"not null;default:0;comment:已履约数量"`
	Status            string     `gorm:"size:20;index:idx_status_expires;not null"`
	ReservedAt        time.Time  `gorm:"not null"`
	ExpiresAt         *time.Time `gorm:"index:idx_status_expires"`
	ClosedAt          *time.Time
	UpdatedAt         time.Time
}

func (ReservationModel) TableName() string {
	return "stock_reservations"
}

// AuditLogModel 库存审计日志表（只插入）
// 变化量冗余存储，便于对账SUM
type AuditLogModel struct {
	ID                   uint   `gorm:"primaryKey"`
	ProductID            uint   `gorm:"index:idx_product_created;not null"`
	Operation            string `gorm:"size:32;index;not null"`
	PhysicalBefore       int    `gorm:"not null"`
	ReservedBefore       int    `gorm:"not null"`
	PhysicalAfter        int    `gorm:"not null"`
	ReservedAfter        int    `gorm:"not null"`
	PhysicalStockChange  int    `gorm:"not null"`
	ReservedStockChange  int    `gorm:"not null"`
	AvailableStockChange int    `gorm:"not null"`
	QuantityAffected     int    `gorm:"not null"`
	OrderID              string `gorm:"size:64;index"`
	ReservationID        uint
	AdjustmentID         uint   `gorm:"index"`
	Reason               string `gorm:"size:255"`
	PerformedBy          string `gorm:"size:64"`
	VersionAfter         int64
	CreatedAt            time.Time `gorm:"index:idx_product_created"`
}

func (AuditLogModel) TableName() string {
	return "stock_audit_logs"
}

// AdjustmentModel 库存调整单表
type AdjustmentModel struct {
	ID                    uint   `gorm:"primaryKey"`
	ProductID             uint   `gorm:"index;not null"`
	Type                  string `gorm:"size:16;not null"`
	Reason                string `gorm:"size:32;not null"`
	Quantity              int    `gorm:"not null"`
	PreviousPhysicalStock int    `gorm:"not null"`
	NewPhysicalStock      *int
	Status                string `gorm:"size:16;index;not null"`
	RequestedBy           string `gorm:"size:64;not null"`
	ApprovedBy            string `gorm:"size:64"`
	Notes                 string `gorm:"type:text"`
	Decision              string `gorm:"size:500"`
	CreatedAt             time.Time
	DecidedAt             *time.Time
}

func (AdjustmentModel) TableName() string {
	return "stock_adjustments"
}

// AlertModel 补货告警表
type AlertModel struct {
	ID                       uint   `gorm:"primaryKey"`
	ProductID                uint   `gorm:"index:idx_product_type;not null"`
	Type                     string `gorm:"size:20;index:idx_product_type;not null"`
	CurrentStock             int
	ReorderPoint             int
	Threshold                int
	SuggestedReorderQuantity int
	Status                   string `gorm:"size:20;index;not null"`
	Notes                    string `gorm:"size:500"`
	HandledBy                string `gorm:"size:64"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
	ResolvedAt               *time.Time
}

func (AlertModel) TableName() string {
	return "reorder_alerts"
}
