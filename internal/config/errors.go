package config

import (
	"fmt"
	"strings"
)

// ConfigurationError represents a structured error that occurs while loading
// the configuration file.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Full path to the file that caused the error
	ErrorType   string   `json:"errorType"`   // Type of error (parse, io, env)
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.FilePath == "" {
		return fmt.Sprintf("[%s] %s", ce.ErrorType, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, "Configuration Error")
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// NewParseError builds a ConfigurationError for a malformed YAML file.
func NewParseError(filePath string, err error) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		ErrorType: "parse",
		Message:   "invalid YAML",
		Details:   err.Error(),
		Suggestions: []string{
			"Check indentation and quoting in the file",
			"Durations use Go syntax, e.g. 25s or 15m",
		},
	}
}

// NewIOError builds a ConfigurationError for an unreadable file.
func NewIOError(filePath string, err error) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		ErrorType: "io",
		Message:   "cannot read configuration file",
		Details:   err.Error(),
	}
}

// NewEnvError builds a ConfigurationError for an unparsable environment
// variable.
func NewEnvError(err error) ConfigurationError {
	return ConfigurationError{
		ErrorType: "env",
		Message:   "invalid FITGATE_* environment variable",
		Details:   err.Error(),
		Suggestions: []string{
			"Numeric variables such as FITGATE_PORT must be integers",
		},
	}
}
