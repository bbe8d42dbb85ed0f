package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/service_registry"
	"github.com/benmeehan/fbx-agent/internal/services"
	"github.com/benmeehan/fbx-agent/internal/utils"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
	"github.com/benmeehan/fbx-agent/pkg/encryption"
	"github.com/benmeehan/fbx-agent/pkg/file"
	"github.com/benmeehan/fbx-agent/pkg/mqtt"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	defaultPath := os.Getenv("FBX_AGENT_CONFIG")
	if defaultPath == "" {
		defaultPath = defaultConfigPath
	}

	var configPath string
	flagSet := pflag.NewFlagSet("fbx-agent", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML configuration file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("Invalid command line")
	}

	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = newLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional at-rest encryption of the pairing record
	var sealer encryption.EncryptionManagerInterface
	if config.Auth.EncryptionKeyFile != "" {
		encryptionManager := encryption.NewEncryptionManager(fileClient)
		if err := encryptionManager.Initialize(config.Auth.EncryptionKeyFile); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize credential encryption")
		}
		sealer = encryptionManager
	}
	store := credentials.NewCredentialStore(config.Auth.File, fileClient, sealer, logger)

	discoveryClient, err := transport.New(transport.Config{
		BaseURL:   "http://" + config.Box.Host + "/",
		ProxyURL:  config.Box.ProxyURL,
		Timeout:   config.Box.RequestTimeout,
		UserAgent: config.App.UserAgent(),
	}, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build discovery client")
	}
	resolver := services.NewDiscoveryService(config.Box.Host, config.Box.DiscoveryPath, discoveryClient, logger)

	newClient := func(baseURL string) (*transport.Client, error) {
		return transport.New(transport.Config{
			BaseURL:       baseURL,
			CACertificate: config.Box.CACertificate,
			ProxyURL:      config.Box.ProxyURL,
			Timeout:       config.Box.RequestTimeout,
			UserAgent:     config.App.UserAgent(),
		}, fileClient)
	}

	bootstrap := services.NewBootstrapService(services.BootstrapOptions{
		AppIdentity:     config.App,
		PairingTimeout:  config.Auth.PairingTimeout,
		PollInterval:    config.Auth.PollInterval,
		MaxPollAttempts: config.Auth.MaxPollAttempts,
		LoginRetries:    config.Auth.LoginRetries,
		OnPending: func(trackID int) {
			fmt.Fprintf(os.Stderr, "Press the confirmation button on the appliance to authorize %s (track %d)\n",
				config.App.AppName, trackID)
		},
	}, store, resolver, newClient, logger)

	session, err := bootstrap.Connect(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the appliance")
	}
	logger.Info().Int("permissions", len(session.Permissions)).Msg("Session established")

	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), config.Box.RequestTimeout)
		defer cancel()
		if err := bootstrap.Close(logoutCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to log out")
		}
	}()

	// One-shot LAN summary, as printed at every start
	lan := services.NewLanService(logger)
	err = bootstrap.WithSession(ctx, func(ctx context.Context, r transport.Requester) error {
		hosts, err := lan.ListHosts(ctx, r, config.Services.Publisher.Interface)
		if err != nil {
			return err
		}
		summary := services.Summarize(hosts)
		logger.Info().Int("devices", summary.Total).Int("connected", summary.Active).Msg("LAN browser summary")
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read LAN browser")
	}

	var mqttClient mqtt.MQTTClient
	if config.Services.Publisher.Enabled {
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		mqttService := mqtt.NewMqttService(fileClient)
		err := mqttService.Initialize(mqtt.Options{
			Broker:        config.MQTT.Broker,
			ClientID:      clientID,
			CACertificate: config.MQTT.CACertificate,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
			WillTopic:     config.Services.Publisher.Topic + "/" + constants.TopicAvailability,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		defer mqttService.Disconnect(250)
		logger.Info().Str("client_id", clientID).Msg("Connected to MQTT broker")
		mqttClient = mqttService
	}

	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, bootstrap, logger)
	if err := serviceRegistry.RegisterServices(config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}
	if serviceRegistry.Len() == 0 {
		return
	}

	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop services cleanly")
	}
}

// newLogger builds the process logger from the logging section.
func newLogger(config *utils.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(config.Logging.Format, "console") {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "fbx-agent").Logger()
}
