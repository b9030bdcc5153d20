//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改后运行 `wire gen ./cmd/ledger` 重新生成wire_gen.go

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	appadjustment "github.com/xiebiao/stockledger/internal/application/adjustment"
	appalert "github.com/xiebiao/stockledger/internal/application/alert"
	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	"github.com/xiebiao/stockledger/internal/infrastructure/messaging"
	"github.com/xiebiao/stockledger/internal/interface/http/handler"
	"github.com/xiebiao/stockledger/internal/interface/http/router"
	"github.com/xiebiao/stockledger/internal/interface/rpc"
)

// storageSet 按database.driver选择MySQL或内存存储
var storageSet = wire.NewSet(
	provideStorage,
	wire.FieldsOf(new(*storage), "TxManager", "Products", "Reservations", "Audits", "Adjustments", "Alerts", "Probe"),
)

// alertSet 阈值策略、告警引擎与通知
var alertSet = wire.NewSet(
	appalert.NewPolicy,
	alert.NewEngine,
	messaging.NewNotifier,
)

// applicationSet 应用服务
var applicationSet = wire.NewSet(
	provideLedgerConfig,
	ledger.NewService,
	appadjustment.NewService,
	appalert.NewService,
)

// interfaceSet HTTP处理器、路由与gRPC
var interfaceSet = wire.NewSet(
	handler.NewLedgerHandler,
	handler.NewAdjustmentHandler,
	handler.NewAlertHandler,
	router.New,
	rpc.NewServer,
)

// InitializeApp 组装整个应用，cleanup按创建的逆序释放资源
func InitializeApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		storageSet,
		alertSet,
		applicationSet,
		interfaceSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
