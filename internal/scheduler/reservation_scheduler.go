package scheduler

import (
	"context"
	"sync"
	"time"

	"mailspot/pkg/logger"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	sweepInterval    = time.Minute
	dispatchInterval = 10 * time.Second
	jobTimeout       = 60 * time.Second
)

// ReservationSweeper 释放超时未支付的预留广告位
type ReservationSweeper interface {
	SweepStaleReservations(ctx context.Context, now time.Time) (int, error)
}

// OutboxDispatcher 投递待发送邮件
type OutboxDispatcher interface {
	DispatchPending(ctx context.Context) (int, int, error)
}

// Scheduler 后台定时任务：预留清理与邮件投递
type Scheduler struct {
	sweeper          ReservationSweeper
	dispatcher       OutboxDispatcher
	logger           *logger.Logger
	sweepInterval    time.Duration
	dispatchInterval time.Duration
	quit             chan struct{}
	stopOnce         sync.Once
	wg               sync.WaitGroup
}

// NewScheduler 创建调度器实例
func NewScheduler(sweeper ReservationSweeper, dispatcher OutboxDispatcher, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		sweeper:          sweeper,
		dispatcher:       dispatcher,
		logger:           logger,
		sweepInterval:    sweepInterval,
		dispatchInterval: dispatchInterval,
		quit:             make(chan struct{}),
	}
}

// Start 启动调度器，每个任务启动时立即运行一次
func (s *Scheduler) Start() {
	s.run(s.sweepReservations, s.sweepInterval)
	s.run(s.dispatchOutbox, s.dispatchInterval)
	s.logger.Info("调度器启动")
}

func (s *Scheduler) run(job func(), period time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wait.Until(job, period, s.quit)
	}()
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
		s.logger.Info("调度器停止")
	})
}

// sweepReservations 释放超时预留
func (s *Scheduler) sweepReservations() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	released, err := s.sweeper.SweepStaleReservations(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("清理超时预留失败", "error", err)
		return
	}
	if released > 0 {
		s.logger.Info("清理超时预留完成", "released", released)
	}
}

// dispatchOutbox 投递待发送邮件
func (s *Scheduler) dispatchOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, failed, err := s.dispatcher.DispatchPending(ctx)
	if err != nil {
		s.logger.Error("邮件投递失败", "error", err)
		return
	}
	if sent > 0 || failed > 0 {
		s.logger.Info("邮件投递完成", "sent", sent, "failed", failed)
	}
}
