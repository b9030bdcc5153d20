package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockledger/internal/interface/rpc"
)

// App 对外提供的两个入口
type App struct {
	Engine *gin.Engine
	RPC    *rpc.Server
}

// storage 一套存储实现
type storage struct {
	TxManager    ledger.TxManager
	Products     stock.Repository
	Reservations stock.ReservationRepository
	Audits       audit.Repository
	Adjustments  adjustment.Repository
	Alerts       alert.Repository
	Probe        rpc.Probe
}

// provideStorage 按database.driver创建存储
// memory只用于本地调试，进程退出数据即丢失
func provideStorage(cfg *config.Config, log *zap.Logger) (*storage, func(), error) {
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("使用内存存储，数据不会持久化")
		store := memory.NewStore()
		return &storage{
			TxManager:    memory.NewTxManager(store),
			Products:     memory.NewProductRepository(store),
			Reservations: memory.NewReservationRepository(store),
			Audits:       memory.NewAuditRepository(store),
			Adjustments:  memory.NewAdjustmentRepository(store),
			Alerts:       memory.NewAlertRepository(store),
		}, func() {}, nil

	case "mysql":
		db, err := mysql.NewDB(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := sqlDB.Close(); err != nil {
				log.Warn("关闭数据库连接失败", zap.Error(err))
			}
		}
		return &storage{
			TxManager:    mysql.NewTxManager(db),
			Products:     mysql.NewProductRepository(db),
			Reservations: mysql.NewReservationRepository(db),
			Audits:       mysql.NewAuditRepository(db),
			Adjustments:  mysql.NewAdjustmentRepository(db),
			Alerts:       mysql.NewAlertRepository(db),
			Probe:        sqlDB.PingContext,
		}, cleanup, nil
	}
	return nil, nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
}

func provideLedgerConfig(cfg *config.Config) ledger.Config {
	c := ledger.DefaultConfig()
	if cfg.Ledger.MaxRetries > 0 {
		c.MaxRetries = cfg.Ledger.MaxRetries
	}
	if cfg.Ledger.RetryInitialDelay > 0 {
		c.InitialDelay = cfg.Ledger.RetryInitialDelay
	}
	if cfg.Ledger.RetryMaxDelay > 0 {
		c.MaxDelay = cfg.Ledger.RetryMaxDelay
	}
	return c
}
