package sqlite

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
	"github.com/frostdev-ops/home-panel-go/internal/database/storetest"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "panel.db")}, quietLogger())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repositories.Store { return setupTestStore(t) })
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	version, dirty, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestMigrateDown_DropsSchema(t *testing.T) {
	store := setupTestStore(t)
	if err := store.MigrateDown(0); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	var count int
	err := store.DB().Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'devices'`)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Errorf("devices table still present after down migration")
	}
}

func TestRoomDelete_UnassignsDevicesViaForeignKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.Rooms().Create(&models.Room{ID: "r1", Name: "Garden"}); err != nil {
			return err
		}
		return tx.Devices().Create(&models.Device{ID: "d1", Name: "Back Door Lock", RoomID: "r1", Category: models.CategoryLock})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Rooms().Delete("r1")
	}); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	_ = store.View(ctx, func(tx repositories.Tx) error {
		d, err := tx.Devices().GetByID("d1")
		if err != nil {
			t.Fatalf("device lost with its room: %v", err)
		}
		if d.RoomID != "" {
			t.Errorf("expected device to be unassigned, got room %q", d.RoomID)
		}
		return nil
	})
}

func TestDeviceCreate_RejectsUnknownRoom(t *testing.T) {
	store := setupTestStore(t)
	err := store.Update(context.Background(), func(tx repositories.Tx) error {
		return tx.Devices().Create(&models.Device{ID: "d1", Name: "Lamp", RoomID: "nowhere", Category: models.CategoryLight})
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestConstraintViolationsMapToConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.Users().Create(&models.User{ID: "u1", Name: "Jamie", Email: "jamie@home.local", Role: models.RoleUser}); err != nil {
			return err
		}
		return tx.Devices().Create(&models.Device{ID: "d1", Name: "Lamp", Category: models.CategoryLight})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		write    func(tx repositories.Tx) error
		conflict bool
	}{
		{
			name: "duplicate email differing in case",
			write: func(tx repositories.Tx) error {
				return tx.Users().Create(&models.User{ID: "u2", Name: "Other", Email: "JAMIE@home.local", Role: models.RoleUser})
			},
			conflict: true,
		},
		{
			name: "duplicate primary key",
			write: func(tx repositories.Tx) error {
				return tx.Devices().Create(&models.Device{ID: "d1", Name: "Lamp 2", Category: models.CategoryLight})
			},
			conflict: true,
		},
		{
			name: "foreign key violation",
			write: func(tx repositories.Tx) error {
				return tx.Devices().Create(&models.Device{ID: "d2", Name: "Fan", RoomID: "nowhere", Category: models.CategoryOther})
			},
			conflict: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Update(ctx, tt.write)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, repositories.ErrConflict); got != tt.conflict {
				t.Errorf("errors.Is(err, ErrConflict) = %v, want %v (err: %v)", got, tt.conflict, err)
			}
		})
	}
}

func TestTranslate_IgnoresMessageText(t *testing.T) {
	err := translate(errors.New("UNIQUE constraint failed: rooms.name"), "create room")
	if errors.Is(err, repositories.ErrConflict) {
		t.Errorf("plain error reported as conflict: %v", err)
	}
	if translate(nil, "create room") != nil {
		t.Error("nil error should stay nil")
	}
}
