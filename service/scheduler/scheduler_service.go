/**
 * @module SchedulerService
 * @description 完整性检查调度器，按 Cron 表达式定时执行全量规则检查
 * @architecture 基于 robfig/cron 的调度器模式
 * @stateFlow Start -> 定时 RunOnce -> Stop
 * @rules 上一次检查未结束时跳过本次触发；表达式为空时不注册任务
 * @dependencies cron库, integrity-service/service/models
 * @refs service/integrity/check_service.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"integrity-service/service/models"
)

// CheckRunner 执行检查的服务
type CheckRunner interface {
	RunCheck(ctx context.Context, ruleID, scope string) (*models.CheckRun, error)
}

// SchedulerService 调度器服务
type SchedulerService struct {
	runner   CheckRunner
	spec     string
	cron     *cron.Cron
	entryID  cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	started  bool
	lastRun  *models.CheckRun
	runCount int
}

// NewSchedulerService 创建调度器服务
func NewSchedulerService(runner CheckRunner, spec string) *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &SchedulerService{
		runner: runner,
		spec:   spec,
		cron:   c,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动调度器
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.spec == "" {
		log.Println("未配置定时检查表达式，跳过调度器启动")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(s.ctx); err != nil {
			log.Printf("定时完整性检查失败: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.started = true
	log.Printf("完整性检查调度器启动完成，表达式: %s", s.spec)
	return nil
}

// Stop 停止调度器，等待正在执行的检查结束
func (s *SchedulerService) Stop() {
	log.Println("停止完整性检查调度器")

	s.cancel()

	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
	}

	log.Println("完整性检查调度器已停止")
}

// RunOnce 立即执行一次全量检查
func (s *SchedulerService) RunOnce(ctx context.Context) (*models.CheckRun, error) {
	run, err := s.runner.RunCheck(ctx, "", models.ScopeAll)

	s.mu.Lock()
	s.runCount++
	if run != nil {
		s.lastRun = run
	}
	s.mu.Unlock()

	if run != nil {
		log.Printf("定时完整性检查完成: id=%s status=%s issues=%d", run.ID, run.Status, len(run.Issues))
	}
	return run, err
}

// IsRunning 调度器是否已启动
func (s *SchedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// LastRun 最近一次由调度器触发的检查
func (s *SchedulerService) LastRun() (*models.CheckRun, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.runCount
}

// NextRun 下一次触发时间，未启动时返回零值
func (s *SchedulerService) NextRun() cron.Entry {
	return s.cron.Entry(s.entryID)
}
