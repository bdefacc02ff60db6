// Package config loads the configuration of the external services actions are delivered to.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidIntegrations wraps every validation failure of an integrations file.
var ErrInvalidIntegrations = errors.New("invalid integrations configuration")

// Integrations is the structure of the services.yaml file.
type Integrations struct {
	Services []Service `yaml:"services" validate:"unique=Name,dive"`
}

// Service describes one external service reached through a webhook endpoint.
type Service struct {
	Name    string            `yaml:"name"    validate:"required"`
	URL     string            `yaml:"url"     validate:"required,url"`
	Actions []string          `yaml:"actions" validate:"required,min=1,dive,required"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout" validate:"gte=0"`
	Retry   Retry             `yaml:"retry"`
}

// Retry controls redelivery of failed requests.
type Retry struct {
	Attempts int           `yaml:"attempts" validate:"gte=0,lte=10"`
	Delay    time.Duration `yaml:"delay"    validate:"gte=0"`
}

// LoadIntegrations reads and validates an integrations file. Environment
// variables referenced as ${NAME} are expanded before parsing so secrets stay
// out of the file.
func LoadIntegrations(path string) (*Integrations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return ParseIntegrations(data)
}

// ParseIntegrations decodes and validates YAML integrations content.
func ParseIntegrations(data []byte) (*Integrations, error) {
	var integrations Integrations
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &integrations); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := integrations.Validate(); err != nil {
		return nil, err
	}

	return &integrations, nil
}

// LoadIntegrationsOrDefault returns an empty configuration when path is blank.
func LoadIntegrationsOrDefault(path string) (*Integrations, error) {
	if path == "" {
		return &Integrations{}, nil
	}

	return LoadIntegrations(path)
}

func (i *Integrations) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIntegrations, err)
	}

	return nil
}
