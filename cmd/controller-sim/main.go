package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/adapters/mock"
	"github.com/quentinrf/fermpi/internal/adapters/syncclient"
	"github.com/quentinrf/fermpi/internal/ports"
	"github.com/quentinrf/fermpi/pkg/tlsconfig"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("starting fermPi controller simulator")

	config := loadConfig()

	var tlsCfg *tls.Config
	if config.TLSCA != "" {
		c, err := tlsconfig.LoadClientTLS(config.TLSCert, config.TLSKey, config.TLSCA)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		tlsCfg = c
		log.Info().Msg("TLS enabled")
	}

	client := syncclient.New(config.ServerURL, tlsCfg, config.Timeout)

	thermometer := mock.NewFakeThermometer(config.Inner, config.Outer, config.Variation)
	defer thermometer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := ports.NewReporter(thermometer, client, config.ReportInterval)
	go reporter.Start(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("simulator stopped")
}

// Config holds simulator configuration
type Config struct {
	ServerURL      string
	ReportInterval time.Duration
	Timeout        time.Duration
	Inner          float64 // average fermenter temperature in °C
	Outer          float64 // average room temperature in °C
	Variation      float64
	TLSCert        string // optional client certificate
	TLSKey         string
	TLSCA          string // CA that signed the server certificate
}

// loadConfig reads configuration from environment variables
func loadConfig() Config {
	serverURL := os.Getenv("FERMPI_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:5000"
	}

	return Config{
		ServerURL:      serverURL,
		ReportInterval: envDuration("REPORT_INTERVAL", time.Minute),
		Timeout:        envDuration("REQUEST_TIMEOUT", 10*time.Second),
		Inner:          envFloat("SIM_TEMP_INNER", 18),
		Outer:          envFloat("SIM_TEMP_OUTER", 21),
		Variation:      envFloat("SIM_VARIATION", 0.5),
		TLSCert:        os.Getenv("TLS_CERT"),
		TLSKey:         os.Getenv("TLS_KEY"),
		TLSCA:          os.Getenv("TLS_CA"),
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		log.Warn().Str(key, s).Msg("invalid duration, using default")
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		log.Warn().Str(key, s).Msg("invalid number, using default")
	}
	return def
}
