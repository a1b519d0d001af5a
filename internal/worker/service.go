package worker

import (
	"context"
	"errors"
	"time"

	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	trackingAggregateInterval = 10 * time.Minute
	trackingAggregateWindow   = time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.TrackingService != nil {
		go s.runTrackingAggregateLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runTrackingAggregateLoop 周期性重算近期活跃用户的打点统计，兜底丢失的聚合任务
func (s *Service) runTrackingAggregateLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.TrackingService == nil {
		return
	}
	runOnce := func() {
		since := time.Now().Add(-trackingAggregateWindow)
		if err := s.consumer.TrackingService.AggregateRecentlyActive(since); err != nil {
			logger.Warnw("worker_tracking_aggregate_loop_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(trackingAggregateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
