package task

import (
	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: s,
		db:        db,
		config:    cfg,
	}, nil
}

// Start 创建任务管理器、注册任务并启动调度
func Start(db *gorm.DB, cfg *config.Config) *Manager {
	manager, err := NewManager(db, cfg)
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	if cfg.Task.Enabled {
		manager.RegisterJobs()
	}

	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.RegisterSettlementAuditJob()
}

// RegisterSettlementAuditJob 注册结算巡检任务
func (m *Manager) RegisterSettlementAuditJob() {
	job := NewSettlementAuditJob(m.db, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Jobs 已注册任务数
func (m *Manager) Jobs() int {
	return len(m.scheduler.Jobs())
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
