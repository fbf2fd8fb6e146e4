// Package home owns the device, room, scene, automation and user state of
// the panel. Every mutation runs inside one store transaction together with
// the room light recount it implies, and committed changes are handed to the
// configured notifiers.
package home

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// Actor is the caller of an operation
type Actor struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the actor may mutate entities
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// System is the actor used by seeding and other server-initiated work
var System = Actor{UserID: "system", Role: models.RoleAdmin}

// ChangeSet describes the records written by one committed mutation
type ChangeSet struct {
	Operation   string
	Actor       string
	Devices     []*models.Device
	Rooms       []*models.Room
	Scenes      []*models.Scene
	Automations []*models.Automation
	Users       []*models.User
	Removed     []Ref
	Scene       string
}

// Ref identifies a record by kind and id
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Notifier receives committed changes. Implementations must not block.
type Notifier interface {
	Notify(change ChangeSet)
}

// Recorder observes the outcome of each mutation
type Recorder interface {
	RecordMutation(operation string, err error)
}

// Option configures a Service
type Option func(*Service)

// WithNotifier adds a change notifier
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifiers = append(s.notifiers, n)
	}
}

// WithRecorder sets the mutation recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the entity store facade used by the API and the assistant
type Service struct {
	store     repositories.Store
	log       *logrus.Logger
	validate  *validator.Validate
	notifiers []Notifier
	recorder  Recorder
	now       func() time.Time
	newID     func() string
}

// NewService creates a service over store
func NewService(store repositories.Store, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      log,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireAdmin rejects non-admin actors before the store is touched
func requireAdmin(actor Actor, operation string) error {
	if !actor.IsAdmin() {
		return &AuthorizationError{Operation: operation, Role: actor.Role}
	}
	return nil
}

// mutate runs fn in a write transaction and publishes the change set it fills
func (s *Service) mutate(ctx context.Context, operation string, actor Actor, fn func(tx repositories.Tx, change *ChangeSet) error) (*ChangeSet, error) {
	change := &ChangeSet{Operation: operation, Actor: actor.UserID}
	err := storeError(s.store.Update(ctx, func(tx repositories.Tx) error {
		*change = ChangeSet{Operation: operation, Actor: actor.UserID}
		return fn(tx, change)
	}))

	if s.recorder != nil {
		s.recorder.RecordMutation(operation, err)
	}
	if err != nil {
		s.logFailure(operation, actor, err)
		return nil, err
	}

	for _, n := range s.notifiers {
		n.Notify(*change)
	}
	return change, nil
}

func (s *Service) logFailure(operation string, actor Actor, err error) {
	entry := s.log.WithError(err).WithFields(logrus.Fields{
		"operation": operation,
		"actor":     actor.UserID,
	})
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		entry.Error("Mutation failed")
		return
	}
	entry.Debug("Mutation rejected")
}

func (s *Service) view(ctx context.Context, fn func(tx repositories.Tx) error) error {
	return storeError(s.store.View(ctx, fn))
}

// check runs struct validation and converts the first failure into a ValidationError
func (s *Service) check(input interface{}) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: toSnake(fe.Field()), Message: describe(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// requireText rejects a provided but blank value in a partial update
func requireText(field string, value *string) error {
	if value != nil && strings.TrimSpace(*value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// TimeLabel renders a timestamp for display, e.g. "2 minutes ago"
func TimeLabel(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return humanize.Time(t)
}

func decorateDevices(devices []*models.Device, roomNames map[string]string) {
	for _, d := range devices {
		d.Location = roomNames[d.RoomID]
		d.Time = TimeLabel(d.LastChanged)
	}
}

func decorateUser(u *models.User) {
	if u.LastLogin == nil {
		u.LastSeen = "Never"
		return
	}
	u.LastSeen = TimeLabel(*u.LastLogin)
}

func roomNameIndex(tx repositories.Tx) (map[string]string, error) {
	rooms, err := tx.Rooms().GetAll()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}
	return names, nil
}
