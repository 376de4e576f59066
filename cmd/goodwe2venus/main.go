package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/venus-addons/goodwe2venus/internal/adapter/actor"
	dbusadapter "github.com/venus-addons/goodwe2venus/internal/adapter/dbus"
	"github.com/venus-addons/goodwe2venus/internal/config"
	"github.com/venus-addons/goodwe2venus/internal/core/actor"
	"github.com/venus-addons/goodwe2venus/internal/server"
	"github.com/venus-addons/goodwe2venus/internal/util/actorutil"
	"github.com/venus-addons/goodwe2venus/pkg/goodwe"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	exitCodeConfigError       = 1
	exitCodeRegistrationError = 2
	exitCodeStartupError      = 3
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(exitCodeConfigError)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// device reader
	reader, err := goodwe.CreateHTTPReader(cfg.OnPremise.Host, cfg.OnPremise.Username,
		cfg.OnPremise.Password, time.Duration(cfg.OnPremise.TimeoutMillis)*time.Millisecond, logger)
	if err != nil {
		logger.Error("could not create device reader", zap.Error(err))
		logger.Sync()
		os.Exit(exitCodeConfigError)
	}

	// bus registration happens before anything polls. A bus that refuses the
	// service name is a deployment problem, not a runtime one.
	publisher := dbusadapter.NewPublisher(cfg, logger)
	if err := publisher.Register(); err != nil {
		logger.Error("bus registration failed", zap.Error(err))
		logger.Sync()
		os.Exit(exitCodeRegistrationError)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, func() *adactor.InverterActor {
			return adactor.NewInverterActor(reader, time.Duration(cfg.OnPremise.TimeoutMillis)*time.Millisecond, logger)
		}, func() *adactor.DBusActor {
			return adactor.NewDBusActor(publisher, logger)
		}, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		logger.Sync()
		os.Exit(exitCodeStartupError)
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => GOODWE2VENUS_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("GOODWE2VENUS_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("goodwe2venus")
	viper.AutomaticEnv()

	// the config file keeps the layout the Python predecessors used
	cfgFile := os.Getenv("CONFIG_FILE")
	if cfgFile == "" {
		cfgFile = "config.ini"
	}
	if _, err := os.Stat(cfgFile); err == nil {
		slog.Info("Using config", "file", cfgFile)
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("ini")

		err = viper.ReadInConfig()
		if err != nil {
			slog.Error("Error reading config file", "error", err)
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MirrorEnabled() {
		return nil
	}
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("accesstype", config.AccessTypeOnPremise)
	viper.SetDefault("signoflifelog", 5)
	viper.SetDefault("deviceinstance", 40)
	viper.SetDefault("customname", "GoodWe EM")
	viper.SetDefault("phase", "L1")
	viper.SetDefault("onpremise.position", config.PositionACInput1)
	viper.SetDefault("onpremise.maxpower", 10000)
	viper.SetDefault("onpremise.hasmeter", false)
	viper.SetDefault("onpremise.pollintervalmillis", 5000)
	viper.SetDefault("onpremise.timeoutmillis", 2000)
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "goodwe2venus")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.OnPremise.Username = "*redacted*"
	cfg.OnPremise.Password = "*redacted*"
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
