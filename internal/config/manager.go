package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/productmanager/pkg/config"
	"github.com/abgdnv/productmanager/pkg/config/configloader"
)

var _ configloader.Validator = (*ManagerConfig)(nil)

// ManagerServiceName selects configs/manager.yaml and the MANAGER_ environment prefix.
const ManagerServiceName = "manager"

// ManagerConfig configures the product manager binary.
type ManagerConfig struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	API        config.APIConfig        `koanf:"api"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
}

// ManagerDefaults are applied before the config file and the environment.
func ManagerDefaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxheaderbytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readheader": "2s",

		"api.baseurl": "http://localhost:3000",
		"api.timeout": "5s",

		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.erroratepercent":     60,
		"resilience.circuitbreaker.opentimeout":         "10s",
		"resilience.circuitbreaker.halfopenrequests":    1,

		"log.level":        "info",
		"pprof.enabled":    false,
		"pprof.addr":       ":6061",
		"shutdown.timeout": "10s",

		"telemetry.traces.enabled":           false,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  "5s",
		"telemetry.metrics.enabled":          true,
	}
}

// LoadManager loads the product manager configuration.
func LoadManager() (*ManagerConfig, error) {
	return configloader.Load[*ManagerConfig](ManagerServiceName, ManagerDefaults())
}

func (c *ManagerConfig) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.API.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *ManagerConfig) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.API, &c.Resilience, &c.Log, &c.PProf, &c.Shutdown, &c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("manager config: %w", err)
		}
	}
	return nil
}
