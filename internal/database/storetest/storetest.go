// Package storetest holds the behaviour every repositories.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// Opener returns a fresh, empty store for one subtest
type Opener func(t *testing.T) repositories.Store

// Run exercises the store contract against the backend returned by open
func Run(t *testing.T, open Opener) {
	t.Run("DeviceRoundTrip", func(t *testing.T) { testDeviceRoundTrip(t, open(t)) })
	t.Run("DevicesByRoom", func(t *testing.T) { testDevicesByRoom(t, open(t)) })
	t.Run("RoomNameUnique", func(t *testing.T) { testRoomNameUnique(t, open(t)) })
	t.Run("UserEmailUnique", func(t *testing.T) { testUserEmailUnique(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, open(t)) })
	t.Run("SceneAndAutomation", func(t *testing.T) { testSceneAndAutomation(t, open(t)) })
}

func testDeviceRoundTrip(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	changed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.Rooms().Create(&models.Room{ID: "r1", Name: "Kitchen", Temp: 24}); err != nil {
			return err
		}
		return tx.Devices().Create(&models.Device{
			ID: "d1", Name: "Kitchen Lights", RoomID: "r1", Category: models.CategoryLight,
			Icon: "Lamp", Active: true, Status: "On", StatusVariant: models.VariantDefault,
			LastChanged: changed,
		})
	})
	require.NoError(t, err)

	var got *models.Device
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		var err error
		got, err = tx.Devices().GetByID("d1")
		return err
	}))

	assert.Equal(t, "Kitchen Lights", got.Name)
	assert.Equal(t, "r1", got.RoomID)
	assert.Equal(t, models.CategoryLight, got.Category)
	assert.Equal(t, "Lamp", got.Icon)
	assert.True(t, got.Active)
	assert.Equal(t, "On", got.Status)
	assert.Equal(t, models.VariantDefault, got.StatusVariant)
	assert.True(t, changed.Equal(got.LastChanged), "last_changed %v != %v", got.LastChanged, changed)
	assert.False(t, got.CreatedAt.IsZero())

	got.Active = false
	got.RoomID = ""
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Devices().Update(got)
	}))
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		d, err := tx.Devices().GetByID("d1")
		if err != nil {
			return err
		}
		assert.False(t, d.Active)
		assert.Equal(t, "", d.RoomID)
		return nil
	}))
}

func testDevicesByRoom(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		for _, r := range []*models.Room{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}} {
			if err := tx.Rooms().Create(r); err != nil {
				return err
			}
		}
		for _, d := range []*models.Device{
			{ID: "1", Name: "one", RoomID: "a", Category: models.CategoryLight},
			{ID: "2", Name: "two", RoomID: "a", Category: models.CategoryLock},
			{ID: "3", Name: "three", RoomID: "b", Category: models.CategoryLight},
			{ID: "4", Name: "four", Category: models.CategoryOther},
		} {
			if err := tx.Devices().Create(d); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		inA, err := tx.Devices().GetByRoom("a")
		require.NoError(t, err)
		assert.Len(t, inA, 2)

		unassigned, err := tx.Devices().GetByRoom("")
		require.NoError(t, err)
		require.Len(t, unassigned, 1)
		assert.Equal(t, "4", unassigned[0].ID)
		return nil
	}))
}

func testRoomNameUnique(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Rooms().Create(&models.Room{ID: "r1", Name: "Kitchen"})
	}))

	err := store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Rooms().Create(&models.Room{ID: "r2", Name: "Kitchen"})
	})
	assert.True(t, errors.Is(err, repositories.ErrConflict), "got %v", err)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		room, err := tx.Rooms().GetByName("Kitchen")
		require.NoError(t, err)
		assert.Equal(t, "r1", room.ID)
		return nil
	}))
}

func testUserEmailUnique(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	login := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Users().Create(&models.User{
			ID: "u1", Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin,
			PasswordHash: "hash", LastLogin: &login,
		})
	}))

	err := store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Users().Create(&models.User{ID: "u2", Name: "Other", Email: "admin@example.com", Role: models.RoleUser})
	})
	assert.True(t, errors.Is(err, repositories.ErrConflict), "got %v", err)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		u, err := tx.Users().GetByEmail("admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.Equal(t, "hash", u.PasswordHash)
		require.NotNil(t, u.LastLogin)
		assert.True(t, login.Equal(*u.LastLogin))
		return nil
	}))
}

func testNotFound(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	err := store.View(ctx, func(tx repositories.Tx) error {
		_, err := tx.Devices().GetByID("missing")
		return err
	})
	assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)

	err = store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Automations().Update(&models.Automation{ID: "missing", Name: "x"})
	})
	assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)

	err = store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Scenes().Delete("missing")
	})
	assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
}

func testRollback(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.Rooms().Create(&models.Room{ID: "r1", Name: "Bedroom"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		rooms, err := tx.Rooms().GetAll()
		require.NoError(t, err)
		assert.Empty(t, rooms)
		return nil
	}))
}

func testListOrder(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Living Room", "Kitchen", "Bedroom", "Entrance"}

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		for i, name := range names {
			room := &models.Room{ID: string(rune('z' - i)), Name: name, CreatedAt: base.Add(time.Duration(i) * time.Second)}
			if err := tx.Rooms().Create(room); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		rooms, err := tx.Rooms().GetAll()
		require.NoError(t, err)
		require.Len(t, rooms, len(names))
		for i, r := range rooms {
			assert.Equal(t, names[i], r.Name)
		}
		return nil
	}))
}

func testSceneAndAutomation(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.Scenes().Create(&models.Scene{ID: "s1", Name: "Good Night", Description: "Lights off", Icon: "Sunset"}); err != nil {
			return err
		}
		return tx.Automations().Create(&models.Automation{
			ID: "a1", Name: "Energy Saver", Trigger: "No motion", Action: "Turn off lights",
			Icon: "Zap", Active: true, Status: models.AutomationActive, LastRun: "Never",
		})
	}))

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		a, err := tx.Automations().GetByID("a1")
		if err != nil {
			return err
		}
		a.Active = false
		a.Status = models.AutomationPaused
		return tx.Automations().Update(a)
	}))

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		s, err := tx.Scenes().GetByID("s1")
		require.NoError(t, err)
		assert.Equal(t, "Sunset", s.Icon)

		a, err := tx.Automations().GetByID("a1")
		require.NoError(t, err)
		assert.False(t, a.Active)
		assert.Equal(t, models.AutomationPaused, a.Status)
		assert.Equal(t, "No motion", a.Trigger)
		return nil
	}))

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.Scenes().Delete("s1")
	}))
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		scenes, err := tx.Scenes().GetAll()
		require.NoError(t, err)
		assert.Empty(t, scenes)
		return nil
	}))
}
