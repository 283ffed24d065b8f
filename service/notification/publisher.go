/*
 * @module service/notification/publisher
 * @description 检查结果通知发布器，支持 Kafka、MQTT 和日志输出
 * @architecture 适配器模式 - 封装第三方消息客户端，提供统一的发布接口
 * @stateFlow 检查完成 -> 序列化 -> 发布到消息通道
 * @rules 发布失败只记录日志，不影响检查结果
 * @dependencies github.com/segmentio/kafka-go, github.com/eclipse/paho.mqtt.golang
 * @refs service/integrity/check_service.go
 */

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"integrity-service/service/config"
)

// Publisher 消息发布接口
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// NewPublisher 根据配置创建发布器
func NewPublisher(cfg config.NotifierConfig) (Publisher, error) {
	switch cfg.Type {
	case config.NotifierKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers)
	case config.NotifierMQTT:
		return NewMQTTPublisher(cfg)
	case config.NotifierLog:
		return NewLogPublisher(slog.Default()), nil
	default:
		return NoopPublisher{}, nil
	}
}

// encodePayload 统一序列化消息体
func encodePayload(payload interface{}) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化消息失败: %w", err)
	}
	return data, nil
}

// NoopPublisher 不发送任何消息
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// LogPublisher 将消息输出到日志
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher 创建日志发布器
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "发布检查通知", "topic", topic, "payload", string(data))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
