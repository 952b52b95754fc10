// Package config loads toolkit configuration from YAML or JSON files, with
// environment variable overrides and pluggable validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the default prefix for environment variable overrides.
const EnvPrefix = "THREADKIT"

// Scheduler names accepted by the Scheduler field.
const (
	SchedulerImmediate   = "immediate"
	SchedulerBlocking    = "blocking"
	SchedulerNonblocking = "nonblocking"
)

// Config describes how the dispatcher and the log sink are set up.
type Config struct {
	// Concurrency is the number of pool workers; 0 runs tasks inline on the
	// caller and -1 selects the machine maximum.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// PoolName is a worker name prefix. Manager.Apply does not use it: the
	// dispatcher's pool keeps the name it was created with.
	PoolName string `yaml:"pool_name" json:"pool_name"`

	// Verbosity is the log sink verbosity threshold.
	Verbosity int `yaml:"verbosity" json:"verbosity"`

	// Scheduler selects the log sink write scheduler.
	Scheduler string `yaml:"scheduler" json:"scheduler"`

	// Metrics enables the Prometheus collectors.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// Default returns the configuration used when no file is given: sequential
// execution, immediate logging, no metrics.
func Default() *Config {
	return &Config{
		Concurrency: 0,
		PoolName:    "thr",
		Verbosity:   0,
		Scheduler:   SchedulerImmediate,
	}
}

// Validator validates configuration
type Validator interface {
	Validate(config *Config) error
}

// ValidatorFunc is a function that validates configuration
type ValidatorFunc func(config *Config) error

func (f ValidatorFunc) Validate(config *Config) error {
	return f(config)
}

// Load loads configuration from a file, detecting the format by extension and
// defaulting to YAML.
func Load(path string, target *Config) error {
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path, target)
	}
	return LoadYAML(path, target)
}

// LoadYAML decodes a YAML configuration file into target.
func LoadYAML(path string, target *Config) error {
	return decodeFile(path, target, yaml.Unmarshal)
}

// LoadJSON decodes a JSON configuration file into target.
func LoadJSON(path string, target *Config) error {
	return decodeFile(path, target, json.Unmarshal)
}

func decodeFile(path string, target *Config, unmarshal func([]byte, interface{}) error) error {
	data, err := os.ReadFile(path) // #nosec G304 -- the path names the caller's own config file
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// SaveYAML writes the configuration as YAML. Toolkit configuration holds
// concurrency and logging knobs, no secrets, so the file is world-readable.
func SaveYAML(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config as YAML: %w", err)
	}
	return writeConfigFile(path, data)
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config as JSON: %w", err)
	}
	return writeConfigFile(path, data)
}

func writeConfigFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// LoadWithEnv loads configuration from a file and applies environment variable
// overrides of the form PREFIX_FIELD (e.g. THREADKIT_CONCURRENCY).
func LoadWithEnv(path, prefix string, target *Config) error {
	if err := Load(path, target); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	if err := ApplyEnvOverrides(prefix, target); err != nil {
		return fmt.Errorf("failed to apply env overrides: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration struct via reflection.
func ApplyEnvOverrides(prefix string, target *Config) error {
	if prefix == "" {
		prefix = EnvPrefix
	}

	val := reflect.ValueOf(target).Elem()
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		envKey := prefix + "_" + strings.ToUpper(typ.Field(i).Name)
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", typ.Field(i).Name, envKey, err)
		}
	}
	return nil
}

func setFieldFromEnv(field reflect.Value, envValue string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var intVal int64
		if _, err := fmt.Sscanf(envValue, "%d", &intVal); err != nil {
			return fmt.Errorf("invalid integer value: %s", envValue)
		}
		field.SetInt(intVal)
	case reflect.Bool:
		field.SetBool(strings.ToLower(envValue) == "true" || envValue == "1")
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate runs the given validators over the configuration.
func Validate(config *Config, validators ...Validator) error {
	for _, validator := range validators {
		if err := validator.Validate(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// ConcurrencyValidator rejects concurrency values below -1 or above the given
// machine maximum (-1 selects the maximum).
func ConcurrencyValidator(maximum int) Validator {
	return ValidatorFunc(func(config *Config) error {
		if config.Concurrency < -1 || config.Concurrency > maximum {
			return fmt.Errorf("concurrency %d is out of range [-1, %d]", config.Concurrency, maximum)
		}
		return nil
	})
}

// SchedulerValidator rejects unknown scheduler names.
func SchedulerValidator() Validator {
	return ValidatorFunc(func(config *Config) error {
		switch config.Scheduler {
		case "", SchedulerImmediate, SchedulerBlocking, SchedulerNonblocking:
			return nil
		}
		return fmt.Errorf("unknown scheduler %q", config.Scheduler)
	})
}
