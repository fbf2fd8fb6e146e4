// Package bolt implements repositories.Store as a bbolt document store: one
// bucket per entity kind, keyed by id, holding JSON documents.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

var (
	devicesBucket     = []byte("devices")
	roomsBucket       = []byte("rooms")
	scenesBucket      = []byte("scenes")
	automationsBucket = []byte("automations")
	usersBucket       = []byte("users")
)

// Store is a bbolt-backed repositories.Store
type Store struct {
	db *bbolt.DB
}

// Open opens the database file, creating it and its buckets if needed
func Open(path string, log *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{devicesBucket, roomsBucket, scenesBucket, automationsBucket, usersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.WithField("path", path).Info("Bolt store opened")
	return &Store{db: db}, nil
}

// View runs fn in a read-only bbolt transaction
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&txScope{tx: btx})
	})
}

// Update runs fn in a read-write bbolt transaction
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		if err := fn(&txScope{tx: btx}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type txScope struct {
	tx *bbolt.Tx
}

func (t *txScope) Devices() repositories.DeviceRepository         { return deviceRepo{t} }
func (t *txScope) Rooms() repositories.RoomRepository             { return roomRepo{t} }
func (t *txScope) Scenes() repositories.SceneRepository           { return sceneRepo{t} }
func (t *txScope) Automations() repositories.AutomationRepository { return automationRepo{t} }
func (t *txScope) Users() repositories.UserRepository             { return userRepo{t} }

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func get[T any](t *txScope, bucket []byte, id string) (*T, error) {
	data := t.tx.Bucket(bucket).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s %q: %w", bucket, id, repositories.ErrNotFound)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s %q: %w", bucket, id, err)
	}
	return &v, nil
}

func exists(t *txScope, bucket []byte, id string) bool {
	return t.tx.Bucket(bucket).Get([]byte(id)) != nil
}

func put(t *txScope, bucket []byte, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %q: %w", bucket, id, err)
	}
	return t.tx.Bucket(bucket).Put([]byte(id), data)
}

func remove(t *txScope, bucket []byte, id string) error {
	if !exists(t, bucket, id) {
		return fmt.Errorf("%s %q: %w", bucket, id, repositories.ErrNotFound)
	}
	return t.tx.Bucket(bucket).Delete([]byte(id))
}

// all decodes every document in bucket that passes keep, ordered by creation time then id
func all[T any](t *txScope, bucket []byte, key func(*T) (time.Time, string), keep func(*T) bool) ([]*T, error) {
	var out []*T
	err := t.tx.Bucket(bucket).ForEach(func(k, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to decode %s %q: %w", bucket, k, err)
		}
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		ti, idi := key(out[i])
		tj, idj := key(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
	return out, nil
}

type deviceRepo struct{ t *txScope }

func deviceKey(d *models.Device) (time.Time, string) { return d.CreatedAt, d.ID }

// Location and Time are resolved at read time and never persisted
func storedDevice(d *models.Device) models.Device {
	doc := *d
	doc.Location = ""
	doc.Time = ""
	return doc
}

func (r deviceRepo) Create(device *models.Device) error {
	if exists(r.t, devicesBucket, device.ID) {
		return fmt.Errorf("device %q: %w", device.ID, repositories.ErrConflict)
	}
	stamp(&device.CreatedAt, &device.UpdatedAt)
	return put(r.t, devicesBucket, device.ID, storedDevice(device))
}

func (r deviceRepo) GetByID(id string) (*models.Device, error) {
	return get[models.Device](r.t, devicesBucket, id)
}

func (r deviceRepo) GetAll() ([]*models.Device, error) {
	return all(r.t, devicesBucket, deviceKey, nil)
}

func (r deviceRepo) GetByRoom(roomID string) ([]*models.Device, error) {
	return all(r.t, devicesBucket, deviceKey, func(d *models.Device) bool { return d.RoomID == roomID })
}

func (r deviceRepo) Update(device *models.Device) error {
	if !exists(r.t, devicesBucket, device.ID) {
		return fmt.Errorf("device %q: %w", device.ID, repositories.ErrNotFound)
	}
	stamp(&device.CreatedAt, &device.UpdatedAt)
	return put(r.t, devicesBucket, device.ID, storedDevice(device))
}

func (r deviceRepo) Delete(id string) error {
	return remove(r.t, devicesBucket, id)
}

type roomRepo struct{ t *txScope }

func roomKey(r *models.Room) (time.Time, string) { return r.CreatedAt, r.ID }

func (r roomRepo) nameTaken(name, exceptID string) (bool, error) {
	matches, err := all(r.t, roomsBucket, roomKey, func(room *models.Room) bool {
		return room.ID != exceptID && strings.EqualFold(room.Name, name)
	})
	return len(matches) > 0, err
}

func (r roomRepo) Create(room *models.Room) error {
	taken, err := r.nameTaken(room.Name, "")
	if err != nil {
		return err
	}
	if taken || exists(r.t, roomsBucket, room.ID) {
		return fmt.Errorf("room %q: %w", room.Name, repositories.ErrConflict)
	}
	stamp(&room.CreatedAt, &room.UpdatedAt)
	return put(r.t, roomsBucket, room.ID, room)
}

func (r roomRepo) GetByID(id string) (*models.Room, error) {
	return get[models.Room](r.t, roomsBucket, id)
}

func (r roomRepo) GetByName(name string) (*models.Room, error) {
	matches, err := all(r.t, roomsBucket, roomKey, func(room *models.Room) bool {
		return strings.EqualFold(room.Name, name)
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("room %q: %w", name, repositories.ErrNotFound)
	}
	return matches[0], nil
}

func (r roomRepo) GetAll() ([]*models.Room, error) {
	return all(r.t, roomsBucket, roomKey, nil)
}

func (r roomRepo) Update(room *models.Room) error {
	if !exists(r.t, roomsBucket, room.ID) {
		return fmt.Errorf("room %q: %w", room.ID, repositories.ErrNotFound)
	}
	taken, err := r.nameTaken(room.Name, room.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("room %q: %w", room.Name, repositories.ErrConflict)
	}
	stamp(&room.CreatedAt, &room.UpdatedAt)
	return put(r.t, roomsBucket, room.ID, room)
}

func (r roomRepo) Delete(id string) error {
	return remove(r.t, roomsBucket, id)
}

type sceneRepo struct{ t *txScope }

func sceneKey(s *models.Scene) (time.Time, string) { return s.CreatedAt, s.ID }

func (r sceneRepo) Create(scene *models.Scene) error {
	if exists(r.t, scenesBucket, scene.ID) {
		return fmt.Errorf("scene %q: %w", scene.ID, repositories.ErrConflict)
	}
	stamp(&scene.CreatedAt, &scene.UpdatedAt)
	return put(r.t, scenesBucket, scene.ID, scene)
}

func (r sceneRepo) GetByID(id string) (*models.Scene, error) {
	return get[models.Scene](r.t, scenesBucket, id)
}

func (r sceneRepo) GetAll() ([]*models.Scene, error) {
	return all(r.t, scenesBucket, sceneKey, nil)
}

func (r sceneRepo) Update(scene *models.Scene) error {
	if !exists(r.t, scenesBucket, scene.ID) {
		return fmt.Errorf("scene %q: %w", scene.ID, repositories.ErrNotFound)
	}
	stamp(&scene.CreatedAt, &scene.UpdatedAt)
	return put(r.t, scenesBucket, scene.ID, scene)
}

func (r sceneRepo) Delete(id string) error {
	return remove(r.t, scenesBucket, id)
}

type automationRepo struct{ t *txScope }

func automationKey(a *models.Automation) (time.Time, string) { return a.CreatedAt, a.ID }

func (r automationRepo) Create(automation *models.Automation) error {
	if exists(r.t, automationsBucket, automation.ID) {
		return fmt.Errorf("automation %q: %w", automation.ID, repositories.ErrConflict)
	}
	stamp(&automation.CreatedAt, &automation.UpdatedAt)
	return put(r.t, automationsBucket, automation.ID, automation)
}

func (r automationRepo) GetByID(id string) (*models.Automation, error) {
	return get[models.Automation](r.t, automationsBucket, id)
}

func (r automationRepo) GetAll() ([]*models.Automation, error) {
	return all(r.t, automationsBucket, automationKey, nil)
}

func (r automationRepo) Update(automation *models.Automation) error {
	if !exists(r.t, automationsBucket, automation.ID) {
		return fmt.Errorf("automation %q: %w", automation.ID, repositories.ErrNotFound)
	}
	stamp(&automation.CreatedAt, &automation.UpdatedAt)
	return put(r.t, automationsBucket, automation.ID, automation)
}

func (r automationRepo) Delete(id string) error {
	return remove(r.t, automationsBucket, id)
}

type userRepo struct{ t *txScope }

func userKey(u *models.User) (time.Time, string) { return u.CreatedAt, u.ID }

// userDoc persists the password hash, which models.User hides from JSON
type userDoc struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func toDoc(u *models.User) userDoc {
	doc := userDoc{User: *u, PasswordHash: u.PasswordHash}
	doc.LastSeen = ""
	return doc
}

func fromDoc(doc *userDoc) *models.User {
	u := doc.User
	u.PasswordHash = doc.PasswordHash
	return &u
}

func docKey(d *userDoc) (time.Time, string) { return userKey(&d.User) }

func (r userRepo) find(keep func(*userDoc) bool) ([]*models.User, error) {
	docs, err := all(r.t, usersBucket, docKey, keep)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, len(docs))
	for i, d := range docs {
		users[i] = fromDoc(d)
	}
	return users, nil
}

func (r userRepo) emailTaken(email, exceptID string) (bool, error) {
	matches, err := r.find(func(d *userDoc) bool {
		return d.ID != exceptID && strings.EqualFold(d.Email, email)
	})
	return len(matches) > 0, err
}

func (r userRepo) Create(user *models.User) error {
	taken, err := r.emailTaken(user.Email, "")
	if err != nil {
		return err
	}
	if taken || exists(r.t, usersBucket, user.ID) {
		return fmt.Errorf("user %q: %w", user.Email, repositories.ErrConflict)
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	return put(r.t, usersBucket, user.ID, toDoc(user))
}

func (r userRepo) GetByID(id string) (*models.User, error) {
	doc, err := get[userDoc](r.t, usersBucket, id)
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

func (r userRepo) GetByEmail(email string) (*models.User, error) {
	matches, err := r.find(func(d *userDoc) bool { return strings.EqualFold(d.Email, email) })
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("user %q: %w", email, repositories.ErrNotFound)
	}
	return matches[0], nil
}

func (r userRepo) GetAll() ([]*models.User, error) {
	return r.find(nil)
}

func (r userRepo) Update(user *models.User) error {
	if !exists(r.t, usersBucket, user.ID) {
		return fmt.Errorf("user %q: %w", user.ID, repositories.ErrNotFound)
	}
	taken, err := r.emailTaken(user.Email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("user %q: %w", user.Email, repositories.ErrConflict)
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	return put(r.t, usersBucket, user.ID, toDoc(user))
}

func (r userRepo) Delete(id string) error {
	return remove(r.t, usersBucket, id)
}
