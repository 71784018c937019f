package config

import (
	"strings"

	"github.com/2ue/total-gmn/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Task       TaskConfig       `mapstructure:"task"`
	Log        LogConfig        `mapstructure:"log"`
	Settlement SettlementConfig `mapstructure:"settlement"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// TaskConfig 后台巡检任务配置
type TaskConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Interval int  `mapstructure:"interval"` // 秒
	Workers  int  `mapstructure:"workers"`  // 巡检协程池大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// SettlementConfig 利润结算策略配置
type SettlementConfig struct {
	IncludeClosedNet    bool    `mapstructure:"include_closed_net"`    // 已关闭交易净额是否计入纯利润
	DeductRefundExpense bool    `mapstructure:"deduct_refund_expense"` // 退款支出是否从纯利润中扣除
	DefaultStrategy     string  `mapstructure:"default_strategy"`      // cumulative / incremental
	DefaultCarryRatio   float64 `mapstructure:"default_carry_ratio"`   // 默认留存比例
	StampChunkSize      int     `mapstructure:"stamp_chunk_size"`      // 增量结算标记每批条数
	HeldNudgeTolerance  string  `mapstructure:"held_nudge_tolerance"`  // 账户留存小额差异修正上限
	TimeZone            string  `mapstructure:"timezone"`              // 解析结算时间使用的时区
}

// Load 从默认路径加载配置
func Load() *Config {
	return LoadFrom(".", "./config", "/etc/profitshare")
}

// LoadFrom 从指定目录加载 config.yaml，找不到文件时使用默认值
func LoadFrom(paths ...string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 设置默认值
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "profitshare")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Shanghai")
	v.SetDefault("task.enabled", true)
	v.SetDefault("task.interval", 600)
	v.SetDefault("task.workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("settlement.include_closed_net", false)
	v.SetDefault("settlement.deduct_refund_expense", true)
	v.SetDefault("settlement.default_strategy", "cumulative")
	v.SetDefault("settlement.default_carry_ratio", 0)
	v.SetDefault("settlement.stamp_chunk_size", 500)
	v.SetDefault("settlement.held_nudge_tolerance", "0.05")
	v.SetDefault("settlement.timezone", "Asia/Shanghai")

	// 环境变量覆盖，例如 PROFIT_SETTLEMENT_INCLUDE_CLOSED_NET=true
	v.SetEnvPrefix("PROFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
