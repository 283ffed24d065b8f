package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"integrity-service/service/config"
)

const mqttTimeout = 10 * time.Second

// MQTTPublisher 基于 paho 客户端的发布器，QoS 1
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher 创建并连接 MQTT 发布器
func NewMQTTPublisher(cfg config.NotifierConfig) (*MQTTPublisher, error) {
	if cfg.MQTTBroker == "" {
		return nil, fmt.Errorf("MQTT broker 地址不能为空")
	}

	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = fmt.Sprintf("integrity-service-%d", time.Now().UnixNano())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("连接MQTT超时")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("连接MQTT失败: %w", err)
	}

	return &MQTTPublisher{client: client}, nil
}

// MQTTTopic 将点分隔的主题转换为 MQTT 的层级主题
func MQTTTopic(topic string) string {
	return strings.ReplaceAll(topic, ".", "/")
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}

	token := p.client.Publish(MQTTTopic(topic), 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("发送MQTT消息失败: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
