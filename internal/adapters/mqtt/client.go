// Package mqtt publishes risk indicator changes to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/slopewatch/pkg/logger"
)

// Sentinel errors.
var (
	ErrConnect = errors.New("mqtt connect failed")
	ErrPublish = errors.New("mqtt publish failed")
)

const (
	keepAlive      = 60 * time.Second
	pingTimeout    = 10 * time.Second
	connectTimeout = 10 * time.Second
	disconnectMs   = 250
)

// ClientConfig holds broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect dials the broker with auto-reconnect enabled.
func Connect(ctx context.Context, cfg ClientConfig, log logger.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info(ctx, "mqtt connected", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn(ctx, "mqtt connection lost", logger.Error(err))
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: %s: timed out", ErrConnect, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, err)
	}
	return client, nil
}

// Disconnect closes c, letting in-flight work finish briefly.
func Disconnect(c paho.Client) {
	if c != nil {
		c.Disconnect(disconnectMs)
	}
}
