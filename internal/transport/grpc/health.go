package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Имена сервисов в health-протоколе. Пустое имя - общий статус процесса.
const (
	ServiceEntitlements = "fal.Entitlements"
	ServiceLedger       = "fal.PurchaseLedger"
)

// Probe - проверка одной зависимости (ping базы, Redis)
type Probe func(ctx context.Context) error

type HealthServer struct {
	server *health.Server
	probes map[string]Probe
	logger *zap.Logger
}

func NewHealthServer(probes map[string]Probe, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		server: health.NewServer(),
		probes: probes,
		logger: logger,
	}
}

func (h *HealthServer) Register(s *gogrpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

// Check опрашивает зависимости и обновляет статусы. Общий статус SERVING,
// только если все зависимости отвечают.
func (h *HealthServer) Check(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for name, probe := range h.probes {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := probe(probeCtx)
		cancel()

		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = status
			h.logger.Warn("health probe failed", zap.String("service", name), zap.Error(err))
		}
		h.server.SetServingStatus(name, status)
	}
	h.server.SetServingStatus("", overall)
}

// Run повторяет Check с интервалом до отмены контекста
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой
func (h *HealthServer) Shutdown() {
	h.server.Shutdown()
}
