package database

import (
	"fmt"
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// gormWriter 把 gorm 的日志转发到应用日志
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Warn(format, args...)
}

// NewGormLogger 只输出慢查询和错误
func NewGormLogger() gormLogger.Interface {
	return gormLogger.New(gormWriter{}, gormLogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Init 连接 postgres 并迁移表结构
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.TimeZone)

	db, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Open 使用任意方言打开数据库并自动迁移，测试中传入 sqlite
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.TransactionModel{},
		&model.ParticipantModel{},
		&model.SettlementBatchModel{},
		&model.SettlementAllocationModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
