// Package config loads service settings from defaults, an optional config
// file and GOQUAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/njchilds90/goquad"
)

// ErrConfiguration indicates an invalid or incomplete configuration.
var ErrConfiguration = errors.New("configuration error")

const (
	KeyPort            = "port"
	KeyMaxBodyBytes    = "max_body_bytes"
	KeyTolerance1D     = "tolerance_1d"
	KeyMaxIterations1D = "max_iterations_1d"
	KeyTolerance2D     = "tolerance_2d"
	KeyMaxIterations2D = "max_iterations_2d"
	KeyExplainURL      = "explain_url"
	KeyExplainTimeout  = "explain_timeout"
)

type Config struct {
	Port         int
	MaxBodyBytes int64

	Tolerance1D     float64
	MaxIterations1D int
	Tolerance2D     float64
	MaxIterations2D int

	// ExplainURL is the text-generation proxy. Empty disables explanations.
	ExplainURL     string
	ExplainTimeout time.Duration
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyMaxBodyBytes, 1<<20)
	v.SetDefault(KeyTolerance1D, goquad.DefaultTolerance1D)
	v.SetDefault(KeyMaxIterations1D, goquad.DefaultMaxIterations1D)
	v.SetDefault(KeyTolerance2D, goquad.DefaultTolerance2D)
	v.SetDefault(KeyMaxIterations2D, goquad.DefaultMaxIterations2D)
	v.SetDefault(KeyExplainURL, "")
	v.SetDefault(KeyExplainTimeout, 30*time.Second)

	v.SetEnvPrefix("goquad")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file, if non-empty, into v and returns the validated Config.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrConfiguration, file, err)
		}
	}
	cfg := Config{
		Port:            v.GetInt(KeyPort),
		MaxBodyBytes:    v.GetInt64(KeyMaxBodyBytes),
		Tolerance1D:     v.GetFloat64(KeyTolerance1D),
		MaxIterations1D: v.GetInt(KeyMaxIterations1D),
		Tolerance2D:     v.GetFloat64(KeyTolerance2D),
		MaxIterations2D: v.GetInt(KeyMaxIterations2D),
		ExplainURL:      v.GetString(KeyExplainURL),
		ExplainTimeout:  v.GetDuration(KeyExplainTimeout),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrConfiguration, c.Port)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrConfiguration)
	case c.Tolerance1D <= 0 || c.Tolerance2D <= 0:
		return fmt.Errorf("%w: tolerances must be positive", ErrConfiguration)
	case c.MaxIterations1D < 0 || c.MaxIterations1D > goquad.MaxToolIterations1D:
		return fmt.Errorf("%w: max_iterations_1d must be in [0, %d]", ErrConfiguration, goquad.MaxToolIterations1D)
	case c.MaxIterations2D < 0 || c.MaxIterations2D > goquad.MaxToolIterations2D:
		return fmt.Errorf("%w: max_iterations_2d must be in [0, %d]", ErrConfiguration, goquad.MaxToolIterations2D)
	case c.ExplainURL != "" && c.ExplainTimeout <= 0:
		return fmt.Errorf("%w: explain_timeout must be positive", ErrConfiguration)
	}
	return nil
}
