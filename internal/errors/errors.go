// Package errors defines the closed error taxonomy shared by every component.
// Each error carries a Kind so callers can branch on classification without
// inspecting messages, and fatal kinds are distinguishable from retryable ones.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a domain error.
type Kind string

const (
	// KindNotAuthorized means the caller has no usable credential at all.
	KindNotAuthorized Kind = "not_authorized"
	// KindReauthorizationRequired means the provider credential is dead and
	// the user must re-grant access. The application session stays valid.
	KindReauthorizationRequired Kind = "reauthorization_required"
	// KindQuotaExceeded means the provider rejected the call for quota
	// reasons. Retryable later, never retried automatically.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindPermissionDenied means the caller does not own the resource.
	KindPermissionDenied Kind = "permission_denied"
	// KindResourceNotFound means the provider resource does not exist.
	KindResourceNotFound Kind = "resource_not_found"
	// KindUpstreamError covers every other provider or network failure.
	KindUpstreamError Kind = "upstream_error"
	// KindConfigurationError indicates a deployment problem. Fatal.
	KindConfigurationError Kind = "configuration_error"
	// KindDecryptionError indicates tampered or corrupted stored secrets. Fatal.
	KindDecryptionError Kind = "decryption_error"
	// KindInvalidSignature means a session token failed signature checks.
	KindInvalidSignature Kind = "invalid_signature"
	// KindExpired means a session token is past its expiry.
	KindExpired Kind = "expired"
	// KindMalformed means a session token could not be parsed at all.
	KindMalformed Kind = "malformed"
	// KindAuthorizationFailed means the initial code-for-token exchange or
	// the identity lookup failed during login.
	KindAuthorizationFailed Kind = "authorization_failed"
)

// As and Is re-export the standard library matchers so packages using the
// taxonomy need a single errors import.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// Kinder is implemented by errors that carry a domain kind.
type Kinder interface {
	Kind() Kind
}

// KindOf extracts the domain kind from any error. Errors produced outside
// the taxonomy classify as UpstreamError so no error escapes unclassified.
func KindOf(err error) Kind {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUpstreamError
}

// IsFatal reports whether an error kind indicates a deployment or data
// corruption problem that must never be retried.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfigurationError, KindDecryptionError:
		return true
	}
	return false
}

// Domain errors

// ErrNotAuthorized is returned when no credential exists for a user.
type ErrNotAuthorized struct {
	UserID string
}

func (e *ErrNotAuthorized) Error() string {
	return fmt.Sprintf("user %s is not authorized with the provider", e.UserID)
}

func (e *ErrNotAuthorized) Kind() Kind { return KindNotAuthorized }

// ErrReauthorizationRequired is returned when the stored credential can no
// longer be renewed and the user must re-grant provider access.
type ErrReauthorizationRequired struct {
	UserID string
	Reason string
}

func (e *ErrReauthorizationRequired) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider access for user %s must be re-granted: %s", e.UserID, e.Reason)
	}
	return fmt.Sprintf("provider access for user %s must be re-granted", e.UserID)
}

func (e *ErrReauthorizationRequired) Kind() Kind { return KindReauthorizationRequired }

// ErrQuotaExceeded is returned when the provider rejects a call over quota.
type ErrQuotaExceeded struct {
	Operation string
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("provider quota exceeded for operation %s", e.Operation)
}

func (e *ErrQuotaExceeded) Kind() Kind { return KindQuotaExceeded }

// ErrPermissionDenied is returned when the provider or an ownership check
// determines the caller does not own the resource.
type ErrPermissionDenied struct {
	Operation string
	Resource  string
}

func (e *ErrPermissionDenied) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("permission denied for %s on %s", e.Operation, e.Resource)
	}
	return fmt.Sprintf("permission denied for %s", e.Operation)
}

func (e *ErrPermissionDenied) Kind() Kind { return KindPermissionDenied }

// ErrResourceNotFound is returned when the provider resource does not exist.
type ErrResourceNotFound struct {
	Operation string
	Resource  string
}

func (e *ErrResourceNotFound) Error() string {
	return fmt.Sprintf("resource %s not found during %s", e.Resource, e.Operation)
}

func (e *ErrResourceNotFound) Kind() Kind { return KindResourceNotFound }

// ErrUpstream is the generic provider/network failure.
type ErrUpstream struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *ErrUpstream) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider call %s failed with status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("provider call %s failed: %v", e.Operation, e.Err)
}

func (e *ErrUpstream) Unwrap() error { return e.Err }

func (e *ErrUpstream) Kind() Kind { return KindUpstreamError }

// ErrConfiguration indicates missing or invalid deployment configuration.
type ErrConfiguration struct {
	Setting string
	Reason  string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Setting, e.Reason)
}

func (e *ErrConfiguration) Kind() Kind { return KindConfigurationError }

// ErrDecryption indicates a sealed envelope failed to open.
type ErrDecryption struct {
	Reason string
	Err    error
}

func (e *ErrDecryption) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

func (e *ErrDecryption) Unwrap() error { return e.Err }

func (e *ErrDecryption) Kind() Kind { return KindDecryptionError }

// Session token errors

// ErrInvalidSignature is returned for tokens whose signature does not verify.
type ErrInvalidSignature struct{}

func (e *ErrInvalidSignature) Error() string { return "session token signature is invalid" }

func (e *ErrInvalidSignature) Kind() Kind { return KindInvalidSignature }

// ErrExpired is returned for tokens past their expiry.
type ErrExpired struct{}

func (e *ErrExpired) Error() string { return "session token has expired" }

func (e *ErrExpired) Kind() Kind { return KindExpired }

// ErrMalformed is returned for tokens that cannot be parsed.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("session token is malformed: %s", e.Reason)
	}
	return "session token is malformed"
}

func (e *ErrMalformed) Kind() Kind { return KindMalformed }

// ErrAuthorizationFailed is returned when the login exchange fails.
type ErrAuthorizationFailed struct {
	Stage string
	Err   error
}

func (e *ErrAuthorizationFailed) Error() string {
	return fmt.Sprintf("authorization failed during %s: %v", e.Stage, e.Err)
}

func (e *ErrAuthorizationFailed) Unwrap() error { return e.Err }

func (e *ErrAuthorizationFailed) Kind() Kind { return KindAuthorizationFailed }

// Infrastructure errors

// ErrConfigNotFound is returned when the config file does not exist.
type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

// ErrConfigParse wraps YAML parse failures.
type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error { return e.Err }

// ErrConfigValidation wraps semantic config validation failures.
type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error { return e.Err }

// ErrDatabaseOpen wraps database open failures.
type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error { return e.Err }

// ErrDatabaseMigration wraps schema migration failures.
type ErrDatabaseMigration struct {
	Version int
	Err     error
}

func (e *ErrDatabaseMigration) Error() string {
	return fmt.Sprintf("database migration %d failed: %v", e.Version, e.Err)
}

func (e *ErrDatabaseMigration) Unwrap() error { return e.Err }

// ErrDatabaseQuery wraps individual query failures.
type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error { return e.Err }

// ErrNotFound is the store-level miss for users, credentials and notes.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// ErrServerStart wraps HTTP server startup failures.
type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error { return e.Err }

// ErrServerShutdown wraps graceful shutdown failures.
type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error { return e.Err }
