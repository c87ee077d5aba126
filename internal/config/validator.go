package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateLLM(&cfg.LLM)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "json": true, "text": true,
}

func (v *Validator) validateLog(cfg *LogConfig) {
	if !validLogLevels[strings.ToLower(cfg.Level)] {
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	if !validLogFormats[strings.ToLower(cfg.Format)] {
		v.addError("log.format", cfg.Format, "must be one of auto, json, text")
	}
}

func (v *Validator) validateLLM(cfg *LLMConfig) {
	if cfg.Model == "" {
		v.addError("llm.model", cfg.Model, "must not be empty")
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil {
			v.addError("llm.timeout", cfg.Timeout, "must be a valid duration")
		} else if d <= 0 {
			v.addError("llm.timeout", cfg.Timeout, "must be positive")
		}
	}
	if cfg.MaxRetries < 0 {
		v.addError("llm.max_retries", cfg.MaxRetries, "must not be negative")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError("llm.temperature", cfg.Temperature, "must be between 0 and 2")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	switch strings.ToLower(cfg.Backend) {
	case "sqlite", "json", "":
	default:
		v.addError("store.backend", cfg.Backend, "must be sqlite or json")
	}
	if cfg.Path == "" {
		v.addError("store.path", cfg.Path, "must not be empty")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	for _, field := range []struct{ name, value string }{
		{"server.request_timeout", cfg.RequestTimeout},
		{"server.shutdown_timeout", cfg.ShutdownTimeout},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			v.addError(field.name, field.value, "must be a valid duration")
		}
	}
}
