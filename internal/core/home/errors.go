package home

import (
	"errors"
	"fmt"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// Kind names an entity kind in errors and change notifications
type Kind string

const (
	KindDevice     Kind = "device"
	KindRoom       Kind = "room"
	KindScene      Kind = "scene"
	KindAutomation Kind = "automation"
	KindUser       Kind = "user"
)

// NotFoundError is returned when an id or name matches no record
type NotFoundError struct {
	Kind Kind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ValidationError is returned when input fails checks before reaching the store
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AuthError is returned when credentials do not match
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// AuthorizationError is returned when the caller's role may not perform an operation
type AuthorizationError struct {
	Operation string
	Role      models.Role
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q may not %s", e.Role, e.Operation)
}

// ExternalServiceError wraps a failure of the persistence backend or the language model
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// notFoundOr converts a repository miss into a NotFoundError and passes other errors through
func notFoundOr(err error, kind Kind, key string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &NotFoundError{Kind: kind, Key: key}
	}
	return err
}

// storeError classifies an error returned from a store transaction. Domain
// errors pass through unchanged; anything else is a backend failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var (
		nf  *NotFoundError
		ve  *ValidationError
		ae  *AuthError
		aze *AuthorizationError
		ext *ExternalServiceError
	)
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &ae) || errors.As(err, &aze) || errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: "store", Err: err}
}
