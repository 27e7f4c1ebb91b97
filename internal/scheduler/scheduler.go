package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fachebot/counsel-assist/internal/config"
	"github.com/fachebot/counsel-assist/internal/logger"
	"github.com/robfig/cron/v3"
)

// requestLogPruner 删除过期请求日志（便于测试注入 mock）
type requestLogPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	pruner requestLogPruner
	config *config.RequestLog
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// locUTC UTC 标准时间（UTC）
var locUTC = time.UTC

func NewScheduler(pruner requestLogPruner, cfg *config.RequestLog) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(locUTC)),
		pruner: pruner,
		config: cfg,
		now:    time.Now,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	// 注册请求日志清理任务
	_, err := s.cron.AddFunc(s.config.Cron, s.runCleanup)
	if err != nil {
		return fmt.Errorf("注册请求日志清理任务失败: %w", err)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] 调度器已启动，请求日志清理任务: %s", s.config.Cron)

	// 启动时先清理一次，避免长时间未运行后日志堆积
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCleanup()
	}()

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	logger.Infof("[Scheduler] 调度器已停止")
}

// runCleanup 执行请求日志清理（cron 触发）
func (s *Scheduler) runCleanup() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		logger.Infof("[Scheduler] 任务已取消，退出")
		return
	default:
	}

	if _, err := s.Cleanup(ctx); err != nil {
		logger.Errorf("[Scheduler] 清理请求日志失败: %v", err)
	}
}

// Cleanup 删除保留期之外的请求日志，返回删除条数
func (s *Scheduler) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()

	logger.Infof("[Scheduler] 开始清理 %s 之前的请求日志", cutoff.Format("2006-01-02"))
	deleted, err := s.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	logger.Infof("[Scheduler] 已清理 %d 条请求日志", deleted)
	return deleted, nil
}

// Cutoff 保留期起点，按 UTC 零点对齐
func (s *Scheduler) Cutoff() time.Time {
	retentionDays := s.config.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 7
	}

	cutoffDate := s.now().In(locUTC).AddDate(0, 0, -retentionDays)
	return time.Date(cutoffDate.Year(), cutoffDate.Month(), cutoffDate.Day(), 0, 0, 0, 0, locUTC)
}
