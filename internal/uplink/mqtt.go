// internal/uplink/mqtt.go
package uplink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
)

const mqttConnectTimeout = 5 * time.Second

// MQTTPublisher pushes reports to one broker topic.
type MQTTPublisher struct {
	cli   mqtt.Client
	topic string
	qos   byte
}

func NewMQTTPublisher(cfg config.MQTTConfig, log *zap.Logger) (*MQTTPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt uplink connection lost", zap.Error(err))
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("uplink: mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("uplink: mqtt connect %s: %w", cfg.Broker, err)
	}
	log.Info("mqtt uplink connected", zap.String("broker", cfg.Broker))

	return &MQTTPublisher{cli: cli, topic: cfg.Topic, qos: cfg.QoS}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("uplink: encode report: %w", err)
	}

	wait := mqttConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}

	token := p.cli.Publish(p.topic, p.qos, false, body)
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("uplink: mqtt publish %s: timeout", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("uplink: mqtt publish %s: %w", p.topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}
