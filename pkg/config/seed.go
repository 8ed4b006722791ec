package config

import (
	"fmt"
	"strings"
)

// SeedConfig names an optional db.json-style file loaded into an empty page store.
type SeedConfig struct {
	File string `koanf:"file"`
}

// String returns a string representation of the seed configuration.
func (c *SeedConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Seed ---\n")
	b.WriteString(fmt.Sprintf("  file: %s\n", c.File))
	return b.String()
}

func (c *SeedConfig) Validate() error {
	return nil
}
