package coreapi

import "fmt"

// ConfigurationError means a required credential or setting is absent.
// It is raised before any network call and is not retryable.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration value %s is not set", e.Field)
}

// UpstreamAuthError means the token endpoint rejected the credential exchange.
type UpstreamAuthError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("failed to get access token: %s", e.Message)
}

// MalformedResponseError means a 2xx response was missing an expected field.
type MalformedResponseError struct {
	Endpoint string
	Field    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected response from %s: missing %s", e.Endpoint, e.Field)
}

// ValidationError means a caller supplied value failed input checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PushRejectedError carries the gateway payload for a declined push.
type PushRejectedError struct {
	StatusCode int
	Payload    string
}

func (e *PushRejectedError) Error() string {
	return fmt.Sprintf("failed to initiate STK push: %s", e.Payload)
}

// TimeoutError means a gateway call exceeded its bound. Safe to retry manually.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
