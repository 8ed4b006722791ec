package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIConfig points the manager at the page API.
type APIConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the page API client configuration.
func (c *APIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Page API ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("page API base URL is not configured")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("page API base URL must be absolute: %s", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("page API timeout is not configured")
	}
	return nil
}
