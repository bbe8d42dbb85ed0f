package service_registry

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/registry"
	"github.com/benmeehan/fbx-agent/internal/services"
	"github.com/benmeehan/fbx-agent/internal/utils"
	"github.com/benmeehan/fbx-agent/pkg/mqtt"
)

// ServiceRegistry manages the lifecycle of the long-running services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	runner      services.SessionRunner
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
// mqttClient may be nil when no MQTT-backed service is enabled.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, runner services.SessionRunner, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		runner:     runner,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Len returns the number of registered services.
func (sr *ServiceRegistry) Len() int {
	return len(sr.serviceKeys)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "publisher",
			enabled: config.Services.Publisher.Enabled,
			constructor: func() (registry.Service, error) {
				if sr.mqttClient == nil {
					return nil, errors.New("publisher requires an MQTT connection")
				}
				logger := sr.Logger.With().Str("service", "publisher").Logger()
				return services.NewPublisherService(
					config.Services.Publisher.Topic,
					config.Services.Publisher.Interval,
					config.Services.Publisher.QOS,
					config.Services.Publisher.Retained,
					config.Services.Publisher.Interface,
					sr.runner,
					services.NewLanService(logger),
					services.NewPlayerService(config.Services.Publisher.Workers, logger),
					sr.mqttClient,
					logger,
				), nil
			},
		},
	}

	for _, svc := range servicesInOrder {
		if !svc.enabled {
			sr.Logger.Debug().Str("service", svc.name).Msg("Service is disabled, skipping")
			continue
		}
		instance, err := svc.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to initialize %s service", svc.name)
			return fmt.Errorf("failed to initialize %s service: %w", svc.name, err)
		}
		sr.RegisterService(svc.name, instance)
	}

	return nil
}
