package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

const deviceColumns = `id, name, COALESCE(room_id, '') AS room_id, category, icon, active,
	status, status_variant, last_changed, created_at, updated_at`

// DeviceRepository implements repositories.DeviceRepository
type DeviceRepository struct{ s *txScope }

// Create inserts a device
func (r *DeviceRepository) Create(device *models.Device) error {
	stamp(&device.CreatedAt, &device.UpdatedAt)
	query := `
		INSERT INTO devices (id, name, room_id, category, icon, active, status, status_variant,
			last_changed, created_at, updated_at)
		VALUES (:id, :name, NULLIF(:room_id, ''), :category, :icon, :active, :status, :status_variant,
			:last_changed, :created_at, :updated_at)
	`
	_, err := r.s.tx.NamedExecContext(r.s.ctx, query, device)
	return translate(err, "create device")
}

// GetByID retrieves a device by ID
func (r *DeviceRepository) GetByID(id string) (*models.Device, error) {
	device := &models.Device{}
	err := r.s.tx.GetContext(r.s.ctx, device, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "device", id)
	}
	return device, nil
}

// GetAll lists devices in creation order
func (r *DeviceRepository) GetAll() ([]*models.Device, error) {
	var devices []*models.Device
	err := r.s.tx.SelectContext(r.s.ctx, &devices, `SELECT `+deviceColumns+` FROM devices ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// GetByRoom lists the devices in a room; an empty roomID lists unassigned devices
func (r *DeviceRepository) GetByRoom(roomID string) ([]*models.Device, error) {
	var devices []*models.Device
	err := r.s.tx.SelectContext(r.s.ctx, &devices,
		`SELECT `+deviceColumns+` FROM devices WHERE COALESCE(room_id, '') = ? ORDER BY created_at, id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for room: %w", err)
	}
	return devices, nil
}

// Update replaces a device
func (r *DeviceRepository) Update(device *models.Device) error {
	stamp(&device.CreatedAt, &device.UpdatedAt)
	query := `
		UPDATE devices SET name = :name, room_id = NULLIF(:room_id, ''), category = :category,
			icon = :icon, active = :active, status = :status, status_variant = :status_variant,
			last_changed = :last_changed, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.s.tx.NamedExecContext(r.s.ctx, query, device)
	if err != nil {
		return translate(err, "update device")
	}
	return expectOne(res, "update device")
}

// Delete removes a device
func (r *DeviceRepository) Delete(id string) error {
	res, err := r.s.tx.ExecContext(r.s.ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete device")
	}
	return expectOne(res, "delete device")
}

const roomColumns = `id, name, temp, lights_on, lights_total, created_at, updated_at`

// RoomRepository implements repositories.RoomRepository
type RoomRepository struct{ s *txScope }

// Create inserts a room
func (r *RoomRepository) Create(room *models.Room) error {
	stamp(&room.CreatedAt, &room.UpdatedAt)
	query := `
		INSERT INTO rooms (id, name, temp, lights_on, lights_total, created_at, updated_at)
		VALUES (:id, :name, :temp, :lights_on, :lights_total, :created_at, :updated_at)
	`
	_, err := r.s.tx.NamedExecContext(r.s.ctx, query, room)
	return translate(err, "create room")
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(id string) (*models.Room, error) {
	room := &models.Room{}
	if err := r.s.tx.GetContext(r.s.ctx, room, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "room", id)
	}
	return room, nil
}

// GetByName retrieves a room by case-insensitive name
func (r *RoomRepository) GetByName(name string) (*models.Room, error) {
	room := &models.Room{}
	if err := r.s.tx.GetContext(r.s.ctx, room, `SELECT `+roomColumns+` FROM rooms WHERE name = ?`, name); err != nil {
		return nil, notFound(err, "room", name)
	}
	return room, nil
}

// GetAll lists rooms in creation order
func (r *RoomRepository) GetAll() ([]*models.Room, error) {
	var rooms []*models.Room
	if err := r.s.tx.SelectContext(r.s.ctx, &rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// Update replaces a room
func (r *RoomRepository) Update(room *models.Room) error {
	stamp(&room.CreatedAt, &room.UpdatedAt)
	query := `
		UPDATE rooms SET name = :name, temp = :temp, lights_on = :lights_on,
			lights_total = :lights_total, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.s.tx.NamedExecContext(r.s.ctx, query, room)
	if err != nil {
		return translate(err, "update room")
	}
	return expectOne(res, "update room")
}

// Delete removes a room. Member devices are unassigned by the foreign key.
func (r *RoomRepository) Delete(id string) error {
	res, err := r.s.tx.ExecContext(r.s.ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete room")
	}
	return expectOne(res, "delete room")
}

const sceneColumns = `id, name, description, icon, created_at, updated_at`

// SceneRepository implements repositories.SceneRepository
type SceneRepository struct{ s *txScope }

// Create inserts a scene
func (r *SceneRepository) Create(scene *models.Scene) error {
	stamp(&scene.CreatedAt, &scene.UpdatedAt)
	query := `
		INSERT INTO scenes (id, name, description, icon, created_at, updated_at)
		VALUES (:id, :name, :description, :icon, :created_at, :updated_at)
	`
	_, err := r.s.tx.NamedExecContext(r.s.ctx, query, scene)
	return translate(err, "create scene")
}

// GetByID retrieves a scene by ID
func (r *SceneRepository) GetByID(id string) (*models.Scene, error) {
	scene := &models.Scene{}
	if err := r.s.tx.GetContext(r.s.ctx, scene, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "scene", id)
	}
	return scene, nil
}

// GetAll lists scenes in creation order
func (r *SceneRepository) GetAll() ([]*models.Scene, error) {
	var scenes []*models.Scene
	if err := r.s.tx.SelectContext(r.s.ctx, &scenes, `SELECT `+sceneColumns+` FROM scenes ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	return scenes, nil
}

// Update replaces a scene
func (r *SceneRepository) Update(scene *models.Scene) error {
	stamp(&scene.CreatedAt, &scene.UpdatedAt)
	query := `
		UPDATE scenes SET name = :name, description = :description, icon = :icon, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.s.tx.NamedExecContext(r.s.ctx, query, scene)
	if err != nil {
		return translate(err, "update scene")
	}
	return expectOne(res, "update scene")
}

// Delete removes a scene
func (r *SceneRepository) Delete(id string) error {
	res, err := r.s.tx.ExecContext(r.s.ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete scene")
	}
	return expectOne(res, "delete scene")
}

const automationColumns = `id, name, description, "trigger", "action", icon, active, status, last_run, created_at, updated_at`

// AutomationRepository implements repositories.AutomationRepository
type AutomationRepository struct{ s *txScope }

// Create inserts an automation
func (r *AutomationRepository) Create(automation *models.Automation) error {
	stamp(&automation.CreatedAt, &automation.UpdatedAt)
	query := `
		INSERT INTO automations (id, name, description, "trigger", "action", icon, active, status, last_run,
			created_at, updated_at)
		VALUES (:id, :name, :description, :trigger, :action, :icon, :active, :status, :last_run,
			:created_at, :updated_at)
	`
	_, err := r.s.tx.NamedExecContext(r.s.ctx, query, automation)
	return translate(err, "create automation")
}

// GetByID retrieves an automation by ID
func (r *AutomationRepository) GetByID(id string) (*models.Automation, error) {
	automation := &models.Automation{}
	if err := r.s.tx.GetContext(r.s.ctx, automation, `SELECT `+automationColumns+` FROM automations WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "automation", id)
	}
	return automation, nil
}

// GetAll lists automations in creation order
func (r *AutomationRepository) GetAll() ([]*models.Automation, error) {
	var automations []*models.Automation
	if err := r.s.tx.SelectContext(r.s.ctx, &automations, `SELECT `+automationColumns+` FROM automations ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	return automations, nil
}

// Update replaces an automation
func (r *AutomationRepository) Update(automation *models.Automation) error {
	stamp(&automation.CreatedAt, &automation.UpdatedAt)
	query := `
		UPDATE automations SET name = :name, description = :description, "trigger" = :trigger,
			"action" = :action, icon = :icon, active = :active, status = :status,
			last_run = :last_run, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.s.tx.NamedExecContext(r.s.ctx, query, automation)
	if err != nil {
		return translate(err, "update automation")
	}
	return expectOne(res, "update automation")
}

// Delete removes an automation
func (r *AutomationRepository) Delete(id string) error {
	res, err := r.s.tx.ExecContext(r.s.ctx, `DELETE FROM automations WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete automation")
	}
	return expectOne(res, "delete automation")
}

const userColumns = `id, name, email, role, password_hash, last_login, created_at, updated_at`

// UserRepository implements repositories.UserRepository
type UserRepository struct{ s *txScope }

// Create inserts a user
func (r *UserRepository) Create(user *models.User) error {
	stamp(&user.CreatedAt, &user.UpdatedAt)
	query := `
		INSERT INTO users (id, name, email, role, password_hash, last_login, created_at, updated_at)
		VALUES (:id, :name, :email, :role, :password_hash, :last_login, :created_at, :updated_at)
	`
	_, err := r.s.tx.NamedExecContext(r.s.ctx, query, user)
	return translate(err, "create user")
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	user := &models.User{}
	if err := r.s.tx.GetContext(r.s.ctx, user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// GetByEmail retrieves a user by case-insensitive email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	user := &models.User{}
	if err := r.s.tx.GetContext(r.s.ctx, user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return nil, notFound(err, "user", email)
	}
	return user, nil
}

// GetAll lists users in creation order
func (r *UserRepository) GetAll() ([]*models.User, error) {
	var users []*models.User
	if err := r.s.tx.SelectContext(r.s.ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update replaces a user
func (r *UserRepository) Update(user *models.User) error {
	stamp(&user.CreatedAt, &user.UpdatedAt)
	query := `
		UPDATE users SET name = :name, email = :email, role = :role, password_hash = :password_hash,
			last_login = :last_login, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.s.tx.NamedExecContext(r.s.ctx, query, user)
	if err != nil {
		return translate(err, "update user")
	}
	return expectOne(res, "update user")
}

// Delete removes a user
func (r *UserRepository) Delete(id string) error {
	res, err := r.s.tx.ExecContext(r.s.ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete user")
	}
	return expectOne(res, "delete user")
}
