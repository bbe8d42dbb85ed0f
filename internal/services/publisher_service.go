package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/mqtt"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// SessionRunner runs a call with the authenticated transport.
type SessionRunner interface {
	WithSession(ctx context.Context, fn func(ctx context.Context, r transport.Requester) error) error
}

// PublisherService periodically publishes LAN and player snapshots to MQTT.
type PublisherService struct {
	BaseTopic  string
	Interval   time.Duration
	QOS        int
	Retained   bool
	Interface  string
	Runner     SessionRunner
	Lan        *LanService
	Players    *PlayerService
	MqttClient mqtt.MQTTClient
	Logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisherService initializes a new PublisherService.
func NewPublisherService(baseTopic string, interval time.Duration, qos int, retained bool, iface string,
	runner SessionRunner, lan *LanService, players *PlayerService, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *PublisherService {

	if interval <= 0 {
		interval = constants.DefaultPublishInterval
	}
	return &PublisherService{
		BaseTopic:  baseTopic,
		Interval:   interval,
		QOS:        qos,
		Retained:   retained,
		Interface:  iface,
		Runner:     runner,
		Lan:        lan,
		Players:    players,
		MqttClient: mqttClient,
		Logger:     logger,
	}
}

// Start launches the publish loop in a separate goroutine.
func (p *PublisherService) Start() error {
	if p.ctx != nil {
		p.Logger.Warn().Msg("PublisherService is already running")
		return errors.New("publisher service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	if err := p.publish(p.topic(constants.TopicAvailability), []byte("online"), true); err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to publish availability")
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runPublishLoop()
	}()

	p.Logger.Info().Str("topic", p.BaseTopic).Dur("interval", p.Interval).Msg("PublisherService started successfully")
	return nil
}

// Stop gracefully stops the publisher service.
func (p *PublisherService) Stop() error {
	if p.ctx == nil {
		p.Logger.Warn().Msg("PublisherService is not running")
		return errors.New("publisher service is not running")
	}

	p.cancel()
	p.wg.Wait()

	if err := p.publish(p.topic(constants.TopicAvailability), []byte("offline"), true); err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to publish availability")
	}

	p.ctx = nil
	p.cancel = nil

	p.Logger.Info().Msg("PublisherService stopped successfully")
	return nil
}

// runPublishLoop publishes immediately and then at every tick.
func (p *PublisherService) runPublishLoop() {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if err := p.PublishOnce(p.ctx); err != nil && p.ctx.Err() == nil {
			p.Logger.Error().Err(err).Msg("Failed to publish snapshot")
		}

		select {
		case <-ticker.C:
		case <-p.ctx.Done():
			p.Logger.Info().Msg("PublisherService stopping gracefully")
			return
		}
	}
}

// PublishOnce collects one LAN and one players snapshot and publishes both.
func (p *PublisherService) PublishOnce(ctx context.Context) error {
	var lan models.LanSnapshot
	var players models.PlayersSnapshot

	err := p.Runner.WithSession(ctx, func(ctx context.Context, r transport.Requester) error {
		hosts, err := p.Lan.ListHosts(ctx, r, p.Interface)
		if err != nil {
			return err
		}
		list, err := p.Players.List(ctx, r)
		if err != nil {
			return err
		}
		snapshots, err := p.Players.StatusAll(ctx, r, list)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		lan = models.LanSnapshot{Timestamp: now, Summary: Summarize(hosts), Hosts: hosts}
		players = models.PlayersSnapshot{Timestamp: now, Players: snapshots}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.publishJSON(p.topic(constants.TopicLan), lan); err != nil {
		return err
	}
	if err := p.publishJSON(p.topic(constants.TopicPlayers), players); err != nil {
		return err
	}

	p.Logger.Debug().
		Int("hosts", lan.Summary.Total).
		Int("active_hosts", lan.Summary.Active).
		Int("players", len(players.Players)).
		Msg("Snapshot published successfully")
	return nil
}

func (p *PublisherService) topic(suffix string) string {
	return fmt.Sprintf("%s/%s", p.BaseTopic, suffix)
}

func (p *PublisherService) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot for %s: %w", topic, err)
	}
	return p.publish(topic, payload, p.Retained)
}

func (p *PublisherService) publish(topic string, payload []byte, retained bool) error {
	token := p.MqttClient.Publish(topic, byte(p.QOS), retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
