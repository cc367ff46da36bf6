package service

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
)

// Config holds the service settings. Unknown keys in the config file are
// ignored so deployments can carry extra annotations.
type Config struct {
	BindAddress            string   `default:":8080" validate:"required" json:"bindAddress"`
	UpstreamURL            string   `validate:"required,url" json:"upstreamURL"`
	UpstreamTimeoutSeconds uint     `default:"30" validate:"required,min=1" json:"upstreamTimeoutSeconds"`
	ForwardHeaders         []string `json:"forwardHeaders"`
	LogLevel               string   `default:"info" validate:"oneof=debug info warn error" json:"logLevel"`
	LogFormat              string   `default:"json" validate:"oneof=json text" json:"logFormat"`
}

// LoadConfig builds a Config from defaults, overridden by the JSON file at
// path when path is non-empty. The result is not yet validated; callers may
// apply further overrides first and then call Validate.
func LoadConfig(path string) (*Config, error) {
	config := new(Config)
	if err := defaults.Set(config); err != nil {
		return nil, err
	}
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if _, err := marshmallow.Unmarshal(data, config, marshmallow.WithExcludeKnownFieldsFromMap(true)); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}
