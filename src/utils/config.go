package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradepanel/src/eventmodels"
)

// LoadDashboardConfig reads the dashboard YAML config from disk.
func LoadDashboardConfig(path string) (*eventmodels.DashboardConfigYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDashboardConfig: failed to read %s: %w", path, err)
	}

	var config eventmodels.DashboardConfigYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("LoadDashboardConfig: failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("LoadDashboardConfig: %w", err)
	}

	return &config, nil
}
