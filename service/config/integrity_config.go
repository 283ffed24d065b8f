/*
 * @module service/config/integrity_config
 * @description 完整性引擎配置，支持默认值、YAML 配置文件和环境变量覆盖
 * @architecture 分层架构 - 配置层
 * @stateFlow 默认值 -> YAML 文件 -> 环境变量 -> 规范化
 * @rules 并发数限制在 1-8 之间，超时必须为正数
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/init.go
 */

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxConcurrency    = 4
	MaxAllowedConcurrency    = 8
	DefaultRuleTimeout       = 30 * time.Second
	DefaultHistoryTrendSize  = 5
	DefaultCorrectionLockTTL = 5 * time.Minute
)

// 锁后端
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// 通知方式
const (
	NotifierNone  = "none"
	NotifierLog   = "log"
	NotifierKafka = "kafka"
	NotifierMQTT  = "mqtt"
)

// IntegrityConfig 完整性引擎配置
type IntegrityConfig struct {
	MaxConcurrency    int            `json:"max_concurrency" yaml:"max_concurrency"`
	RuleTimeout       time.Duration  `json:"rule_timeout" yaml:"rule_timeout"`
	HistoryTrendSize  int            `json:"history_trend_size" yaml:"history_trend_size"`
	CheckCron         string         `json:"check_cron" yaml:"check_cron"` // 为空时不启用定时检查
	CorrectionLockTTL time.Duration  `json:"correction_lock_ttl" yaml:"correction_lock_ttl"`
	LockBackend       string         `json:"lock_backend" yaml:"lock_backend"`
	Notifier          NotifierConfig `json:"notifier" yaml:"notifier"`
}

// NotifierConfig 检查结果通知配置
type NotifierConfig struct {
	Type         string   `json:"type" yaml:"type"`
	Topic        string   `json:"topic" yaml:"topic"`
	KafkaBrokers []string `json:"kafka_brokers" yaml:"kafka_brokers"`
	MQTTBroker   string   `json:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTClientID string   `json:"mqtt_client_id" yaml:"mqtt_client_id"`
	MQTTUsername string   `json:"mqtt_username" yaml:"mqtt_username"`
	MQTTPassword string   `json:"mqtt_password" yaml:"mqtt_password"`
}

// DefaultIntegrityConfig 返回默认配置
func DefaultIntegrityConfig() *IntegrityConfig {
	return &IntegrityConfig{
		MaxConcurrency:    DefaultMaxConcurrency,
		RuleTimeout:       DefaultRuleTimeout,
		HistoryTrendSize:  DefaultHistoryTrendSize,
		CorrectionLockTTL: DefaultCorrectionLockTTL,
		LockBackend:       LockBackendMemory,
		Notifier: NotifierConfig{
			Type:  NotifierNone,
			Topic: "integrity.check_run.completed",
		},
	}
}

// LoadIntegrityConfig 加载配置：默认值 -> INTEGRITY_CONFIG_FILE 指定的 YAML -> 环境变量
func LoadIntegrityConfig() (*IntegrityConfig, error) {
	cfg := DefaultIntegrityConfig()

	if path := os.Getenv("INTEGRITY_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

// loadFile 从 YAML 文件加载配置
func (c *IntegrityConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	return c.ParseYAML(data)
}

// ParseYAML 用 YAML 内容覆盖当前配置
func (c *IntegrityConfig) ParseYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// applyEnv 环境变量覆盖
func (c *IntegrityConfig) applyEnv() {
	if v := os.Getenv("INTEGRITY_MAX_CONCURRENCY"); v != "" {
		c.MaxConcurrency = cast.ToInt(v)
	}
	if v := os.Getenv("INTEGRITY_RULE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RuleTimeout = d
		}
	}
	if v := os.Getenv("INTEGRITY_HISTORY_TREND_SIZE"); v != "" {
		c.HistoryTrendSize = cast.ToInt(v)
	}
	if v, ok := os.LookupEnv("INTEGRITY_CHECK_CRON"); ok {
		c.CheckCron = v
	}
	if v := os.Getenv("INTEGRITY_CORRECTION_LOCK_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CorrectionLockTTL = d
		}
	}
	if v := os.Getenv("INTEGRITY_LOCK_BACKEND"); v != "" {
		c.LockBackend = v
	}
	if v := os.Getenv("INTEGRITY_NOTIFIER"); v != "" {
		c.Notifier.Type = v
	}
	if v := os.Getenv("INTEGRITY_NOTIFY_TOPIC"); v != "" {
		c.Notifier.Topic = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notifier.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.Notifier.MQTTBroker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.Notifier.MQTTClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.Notifier.MQTTUsername = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.Notifier.MQTTPassword = v
	}
}

// Normalize 修正非法配置值
func (c *IntegrityConfig) Normalize() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxConcurrency > MaxAllowedConcurrency {
		c.MaxConcurrency = MaxAllowedConcurrency
	}
	if c.RuleTimeout <= 0 {
		c.RuleTimeout = DefaultRuleTimeout
	}
	if c.HistoryTrendSize <= 0 {
		c.HistoryTrendSize = DefaultHistoryTrendSize
	}
	if c.CorrectionLockTTL <= 0 {
		c.CorrectionLockTTL = DefaultCorrectionLockTTL
	}

	c.LockBackend = strings.ToLower(strings.TrimSpace(c.LockBackend))
	if c.LockBackend != LockBackendRedis {
		c.LockBackend = LockBackendMemory
	}

	c.Notifier.Type = strings.ToLower(strings.TrimSpace(c.Notifier.Type))
	switch c.Notifier.Type {
	case NotifierLog, NotifierKafka, NotifierMQTT:
	default:
		c.Notifier.Type = NotifierNone
	}
	if c.Notifier.Topic == "" {
		c.Notifier.Topic = "integrity.check_run.completed"
	}

	brokers := make([]string, 0, len(c.Notifier.KafkaBrokers))
	for _, b := range c.Notifier.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Notifier.KafkaBrokers = brokers
}
