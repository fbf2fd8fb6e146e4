package repositories

import (
	"context"
	"errors"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

var (
	// ErrNotFound is returned when a record with the given key does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("record conflicts with an existing record")
)

// DeviceRepository defines device data access methods
type DeviceRepository interface {
	Create(device *models.Device) error
	GetByID(id string) (*models.Device, error)
	GetAll() ([]*models.Device, error)
	GetByRoom(roomID string) ([]*models.Device, error)
	Update(device *models.Device) error
	Delete(id string) error
}

// RoomRepository defines room data access methods
type RoomRepository interface {
	Create(room *models.Room) error
	GetByID(id string) (*models.Room, error)
	GetByName(name string) (*models.Room, error)
	GetAll() ([]*models.Room, error)
	Update(room *models.Room) error
	Delete(id string) error
}

// SceneRepository defines scene data access methods
type SceneRepository interface {
	Create(scene *models.Scene) error
	GetByID(id string) (*models.Scene, error)
	GetAll() ([]*models.Scene, error)
	Update(scene *models.Scene) error
	Delete(id string) error
}

// AutomationRepository defines automation data access methods
type AutomationRepository interface {
	Create(automation *models.Automation) error
	GetByID(id string) (*models.Automation, error)
	GetAll() ([]*models.Automation, error)
	Update(automation *models.Automation) error
	Delete(id string) error
}

// UserRepository defines user data access methods
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetAll() ([]*models.User, error)
	Update(user *models.User) error
	Delete(id string) error
}

// Tx is a unit of work over every entity kind. Writes made through a Tx are
// visible to other readers only once the enclosing Update returns nil.
type Tx interface {
	Devices() DeviceRepository
	Rooms() RoomRepository
	Scenes() SceneRepository
	Automations() AutomationRepository
	Users() UserRepository
}

// Store is a transactional entity store. Update runs fn in a read-write
// transaction that is committed when fn returns nil and discarded otherwise.
// Records returned from a Tx are copies; mutating them has no effect until
// they are written back.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
