package ai

import (
	"errors"
	"fmt"
	"time"
)

func describe(kind string, e *APIError) string {
	if e == nil {
		return kind
	}
	return kind + ": " + e.Error()
}

// AuthError is a 401/403 response or a missing credential.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return describe("authentication failed", e.APIError) }
func (e *AuthError) Unwrap() error { return e.APIError }

// RateLimitError is a 429 response. RetryAfter is zero when the provider gave no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return describe(fmt.Sprintf("rate limited: wait about %ds before retrying", int(e.RetryAfter.Seconds())), e.APIError)
	}
	return describe("rate limited", e.APIError)
}

func (e *RateLimitError) Unwrap() error { return e.APIError }

type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return describe("model not found", e.APIError) }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }

// BadRequestError is a 400 response, usually an invalid parameter.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return describe("bad request", e.APIError) }
func (e *BadRequestError) Unwrap() error { return e.APIError }

type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return describe("quota exceeded", e.APIError) }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }

// ServerError is a 5xx response. It is retried by the HTTP runtimes.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return describe("provider error", e.APIError) }
func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError means no response arrived at all, e.g. a local Ollama
// that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Hint suggests what the user can change to fix err. It returns "" when
// there is nothing actionable.
func Hint(err error) string {
	var (
		auth  *AuthError
		model *ModelNotFoundError
		quota *QuotaExceededError
		down  *UnreachableError
	)
	switch {
	case errors.As(err, &auth):
		return "set OPENROUTER_API_KEY or ANTHROPIC_API_KEY, or run: datachat config set api_key <key>"
	case errors.As(err, &model):
		return "pick another model with: datachat config set model <name>"
	case errors.As(err, &quota):
		return "check the provider account's credits and limits"
	case errors.As(err, &down):
		return "check the provider endpoint; for Ollama run: ollama serve"
	}
	return ""
}
