// Package memory provides a copy-on-write in-memory implementation of
// repositories.Store. Writers are serialized and work on a private copy of
// the state that replaces the published state only on commit, so readers
// never observe a partially applied transaction.
package memory

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type state struct {
	devices     map[string]models.Device
	rooms       map[string]models.Room
	scenes      map[string]models.Scene
	automations map[string]models.Automation
	users       map[string]models.User
}

func newState() *state {
	return &state{
		devices:     map[string]models.Device{},
		rooms:       map[string]models.Room{},
		scenes:      map[string]models.Scene{},
		automations: map[string]models.Automation{},
		users:       map[string]models.User{},
	}
}

func (s *state) clone() *state {
	return &state{
		devices:     maps.Clone(s.devices),
		rooms:       maps.Clone(s.rooms),
		scenes:      maps.Clone(s.scenes),
		automations: maps.Clone(s.automations),
		users:       maps.Clone(s.users),
	}
}

// Store is an in-memory repositories.Store
type Store struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	current *state
	now     func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{
		current: newState(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// View runs fn against the last committed state
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	st := s.current
	s.mu.RUnlock()
	return fn(&tx{state: st, readOnly: true, now: s.now})
}

// Update runs fn against a private copy of the state and publishes it if fn succeeds
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	draft := s.current.clone()
	s.mu.RUnlock()

	if err := fn(&tx{state: draft, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = draft
	s.mu.Unlock()
	return nil
}

// Close is a no-op
func (s *Store) Close() error { return nil }

type tx struct {
	state    *state
	readOnly bool
	now      func() time.Time
}

func (t *tx) Devices() repositories.DeviceRepository         { return deviceRepo{t} }
func (t *tx) Rooms() repositories.RoomRepository             { return roomRepo{t} }
func (t *tx) Scenes() repositories.SceneRepository           { return sceneRepo{t} }
func (t *tx) Automations() repositories.AutomationRepository { return automationRepo{t} }
func (t *tx) Users() repositories.UserRepository             { return userRepo{t} }

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// stamp sets CreatedAt on first write and UpdatedAt on every write
func (t *tx) stamp(created, updated *time.Time) {
	now := t.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// sorted returns copies of the values ordered by creation time then id
func sorted[T any](m map[string]T, key func(*T) (time.Time, string), keep func(*T) bool) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		v := v
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, idi := key(out[i])
		tj, idj := key(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
	return out
}

type deviceRepo struct{ t *tx }

func deviceKey(d *models.Device) (time.Time, string) { return d.CreatedAt, d.ID }

func (r deviceRepo) Create(device *models.Device) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.devices[device.ID]; exists {
		return repositories.ErrConflict
	}
	r.t.stamp(&device.CreatedAt, &device.UpdatedAt)
	r.t.state.devices[device.ID] = *device
	return nil
}

func (r deviceRepo) GetByID(id string) (*models.Device, error) {
	d, ok := r.t.state.devices[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (r deviceRepo) GetAll() ([]*models.Device, error) {
	return sorted(r.t.state.devices, deviceKey, nil), nil
}

func (r deviceRepo) GetByRoom(roomID string) ([]*models.Device, error) {
	return sorted(r.t.state.devices, deviceKey, func(d *models.Device) bool {
		return d.RoomID == roomID
	}), nil
}

func (r deviceRepo) Update(device *models.Device) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.devices[device.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.t.stamp(&device.CreatedAt, &device.UpdatedAt)
	r.t.state.devices[device.ID] = *device
	return nil
}

func (r deviceRepo) Delete(id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.devices[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.devices, id)
	return nil
}

type roomRepo struct{ t *tx }

func roomKey(r *models.Room) (time.Time, string) { return r.CreatedAt, r.ID }

func (r roomRepo) nameTaken(name, exceptID string) bool {
	for id, room := range r.t.state.rooms {
		if id != exceptID && strings.EqualFold(room.Name, name) {
			return true
		}
	}
	return false
}

func (r roomRepo) Create(room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.rooms[room.ID]; exists || r.nameTaken(room.Name, "") {
		return repositories.ErrConflict
	}
	r.t.stamp(&room.CreatedAt, &room.UpdatedAt)
	r.t.state.rooms[room.ID] = *room
	return nil
}

func (r roomRepo) GetByID(id string) (*models.Room, error) {
	room, ok := r.t.state.rooms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &room, nil
}

func (r roomRepo) GetByName(name string) (*models.Room, error) {
	for _, room := range r.t.state.rooms {
		if strings.EqualFold(room.Name, name) {
			room := room
			return &room, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r roomRepo) GetAll() ([]*models.Room, error) {
	return sorted(r.t.state.rooms, roomKey, nil), nil
}

func (r roomRepo) Update(room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.rooms[room.ID]; !ok {
		return repositories.ErrNotFound
	}
	if r.nameTaken(room.Name, room.ID) {
		return repositories.ErrConflict
	}
	r.t.stamp(&room.CreatedAt, &room.UpdatedAt)
	r.t.state.rooms[room.ID] = *room
	return nil
}

func (r roomRepo) Delete(id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.rooms[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.rooms, id)
	return nil
}

type sceneRepo struct{ t *tx }

func sceneKey(s *models.Scene) (time.Time, string) { return s.CreatedAt, s.ID }

func (r sceneRepo) Create(scene *models.Scene) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.scenes[scene.ID]; exists {
		return repositories.ErrConflict
	}
	r.t.stamp(&scene.CreatedAt, &scene.UpdatedAt)
	r.t.state.scenes[scene.ID] = *scene
	return nil
}

func (r sceneRepo) GetByID(id string) (*models.Scene, error) {
	s, ok := r.t.state.scenes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r sceneRepo) GetAll() ([]*models.Scene, error) {
	return sorted(r.t.state.scenes, sceneKey, nil), nil
}

func (r sceneRepo) Update(scene *models.Scene) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.scenes[scene.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.t.stamp(&scene.CreatedAt, &scene.UpdatedAt)
	r.t.state.scenes[scene.ID] = *scene
	return nil
}

func (r sceneRepo) Delete(id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.scenes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.scenes, id)
	return nil
}

type automationRepo struct{ t *tx }

func automationKey(a *models.Automation) (time.Time, string) { return a.CreatedAt, a.ID }

func (r automationRepo) Create(automation *models.Automation) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.automations[automation.ID]; exists {
		return repositories.ErrConflict
	}
	r.t.stamp(&automation.CreatedAt, &automation.UpdatedAt)
	r.t.state.automations[automation.ID] = *automation
	return nil
}

func (r automationRepo) GetByID(id string) (*models.Automation, error) {
	a, ok := r.t.state.automations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r automationRepo) GetAll() ([]*models.Automation, error) {
	return sorted(r.t.state.automations, automationKey, nil), nil
}

func (r automationRepo) Update(automation *models.Automation) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.automations[automation.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.t.stamp(&automation.CreatedAt, &automation.UpdatedAt)
	r.t.state.automations[automation.ID] = *automation
	return nil
}

func (r automationRepo) Delete(id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.automations[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.automations, id)
	return nil
}

type userRepo struct{ t *tx }

func userKey(u *models.User) (time.Time, string) { return u.CreatedAt, u.ID }

// copyUser detaches the LastLogin pointer from the stored record
func copyUser(u models.User) *models.User {
	if u.LastLogin != nil {
		ts := *u.LastLogin
		u.LastLogin = &ts
	}
	return &u
}

func (r userRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.t.state.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r userRepo) Create(user *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.users[user.ID]; exists || r.emailTaken(user.Email, "") {
		return repositories.ErrConflict
	}
	r.t.stamp(&user.CreatedAt, &user.UpdatedAt)
	r.t.state.users[user.ID] = *copyUser(*user)
	return nil
}

func (r userRepo) GetByID(id string) (*models.User, error) {
	u, ok := r.t.state.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyUser(u), nil
}

func (r userRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range r.t.state.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) GetAll() ([]*models.User, error) {
	users := sorted(r.t.state.users, userKey, nil)
	for i, u := range users {
		users[i] = copyUser(*u)
	}
	return users, nil
}

func (r userRepo) Update(user *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return repositories.ErrConflict
	}
	r.t.stamp(&user.CreatedAt, &user.UpdatedAt)
	r.t.state.users[user.ID] = *copyUser(*user)
	return nil
}

func (r userRepo) Delete(id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.users, id)
	return nil
}
