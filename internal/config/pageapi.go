package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/productmanager/pkg/config"
	"github.com/abgdnv/productmanager/pkg/config/configloader"
)

var _ configloader.Validator = (*PageAPIConfig)(nil)

// PageAPIServiceName selects configs/pageapi.yaml and the PAGEAPI_ environment prefix.
const PageAPIServiceName = "pageapi"

// PageAPIConfig configures the reference page API binary.
// An empty database URL selects the in-memory store.
type PageAPIConfig struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Database   config.DatabaseConfig  `koanf:"database"`
	Seed       config.SeedConfig      `koanf:"seed"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
}

// PageAPIDefaults are applied before the config file and the environment.
func PageAPIDefaults() map[string]any {
	return map[string]any{
		"server.port":               3000,
		"server.maxheaderbytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readheader": "2s",

		"database.timeout": "5s",

		"log.level":        "info",
		"pprof.enabled":    false,
		"pprof.addr":       ":6062",
		"shutdown.timeout": "10s",

		"telemetry.traces.enabled":           false,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  "5s",
		"telemetry.metrics.enabled":          true,
	}
}

// LoadPageAPI loads the page API configuration.
func LoadPageAPI() (*PageAPIConfig, error) {
	return configloader.Load[*PageAPIConfig](PageAPIServiceName, PageAPIDefaults())
}

func (c *PageAPIConfig) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Seed.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *PageAPIConfig) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.Database, &c.Seed, &c.Log, &c.PProf, &c.Shutdown, &c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("page API config: %w", err)
		}
	}
	return nil
}
