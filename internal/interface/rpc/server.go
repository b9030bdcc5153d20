// Package rpc 提供gRPC健康检查与反射服务，供负载均衡和grpcurl探活
package rpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName 健康检查中登记的服务名
const ServiceName = "stockledger.Ledger"

// Probe 探测存储是否可用
type Probe func(ctx context.Context) error

// Server gRPC服务器
// 健康状态跟随存储可用性，周期性刷新
type Server struct {
	srv      *grpc.Server
	health   *health.Server
	probe    Probe
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

// NewServer 创建gRPC服务器，probe为空时始终SERVING
func NewServer(probe Probe, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		health:   health.NewServer(),
		probe:    probe,
		interval: 10 * time.Second,
		logger:   logger,
		done:     make(chan struct{}),
	}

	s.srv = grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.ChainUnaryInterceptor(s.logUnary),
	)
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// Check 探测一次并更新健康状态
func (s *Server) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		if err := s.probe(ctx); err != nil {
			s.logger.Warn("存储探测失败", zap.Error(err))
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Serve 阻塞直到Stop
func (s *Server) Serve(lis net.Listener) error {
	s.Check(context.Background())
	go s.watch()

	s.logger.Info("gRPC服务启动", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Stop 先把健康状态置为NOT_SERVING，再等待进行中的请求结束
func (s *Server) Stop() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			s.Check(ctx)
			cancel()
		}
	}
}

func (s *Server) logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("gRPC请求",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, err
}
