package eventmodels

import (
	"fmt"
	"time"
)

type DashboardConfigYAML struct {
	APIBaseURL           string `yaml:"api_base_url"`
	StreamURL            string `yaml:"stream_url"`
	HTTPPort             int    `yaml:"http_port"`
	OrderTimeoutSeconds  int    `yaml:"order_timeout_seconds"`
	DebounceMilliseconds int    `yaml:"debounce_milliseconds"`
}

func (c *DashboardConfigYAML) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("DashboardConfigYAML: api_base_url is required")
	}

	if c.StreamURL == "" {
		return fmt.Errorf("DashboardConfigYAML: stream_url is required")
	}

	return nil
}

// OrderTimeout bounds the verify/confirm round trips so a response that
// never arrives cannot leave the submission machine stuck.
func (c *DashboardConfigYAML) OrderTimeout() time.Duration {
	if c.OrderTimeoutSeconds <= 0 {
		return 10 * time.Second
	}

	return time.Duration(c.OrderTimeoutSeconds) * time.Second
}

func (c *DashboardConfigYAML) Debounce() time.Duration {
	if c.DebounceMilliseconds <= 0 {
		return 500 * time.Millisecond
	}

	return time.Duration(c.DebounceMilliseconds) * time.Millisecond
}

func (c *DashboardConfigYAML) Port() int {
	if c.HTTPPort <= 0 {
		return 8080
	}

	return c.HTTPPort
}
