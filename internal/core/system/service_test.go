package system

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

type stubHome struct {
	devices     []*models.Device
	rooms       []*models.Room
	automations []*models.Automation
	err         error
}

func (h *stubHome) ListDevices(ctx context.Context) ([]*models.Device, error) {
	return h.devices, h.err
}

func (h *stubHome) ListRooms(ctx context.Context) ([]*models.Room, error) {
	return h.rooms, nil
}

func (h *stubHome) ListAutomations(ctx context.Context) ([]*models.Automation, error) {
	return h.automations, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSummarize(t *testing.T) {
	devices := []*models.Device{
		{Name: "Kitchen Lights", Category: models.CategoryLight, Active: true, RoomID: "k"},
		{Name: "Porch Light", Category: models.CategoryLight},
		{Name: "Front Door Lock", Category: models.CategoryLock, RoomID: "e"},
		{Name: "Back Door Lock", Category: models.CategoryLock, Active: true, RoomID: "g"},
		{Name: "Smoke Detector", Category: models.CategorySecurity, Status: "Online", RoomID: "k"},
	}
	rooms := []*models.Room{
		{ID: "k", LightsOn: 1, LightsTotal: 1},
		{ID: "e"},
		{ID: "g"},
	}
	automations := []*models.Automation{{Active: true}, {Active: false}}

	stats := summarize(devices, rooms, automations)

	assert.Equal(t, 5, stats.Devices)
	assert.Equal(t, 2, stats.ActiveDevices)
	assert.Equal(t, 1, stats.UnassignedDevices)
	assert.Equal(t, 3, stats.Rooms)
	assert.Equal(t, 1, stats.LightsOn)
	assert.Equal(t, 1, stats.LightsTotal)
	assert.Equal(t, 1, stats.ActiveAutomations)
	assert.Equal(t, 2, stats.DevicesByCategory["light"])
	assert.Equal(t, []string{"Front Door Lock"}, stats.UnlockedLocks)
	assert.Equal(t, []string{"Smoke Detector: Online"}, stats.SecurityDevices)
}

func TestSnapshot(t *testing.T) {
	svc := NewService(&stubHome{
		devices: []*models.Device{{Name: "Lamp", Category: models.CategoryLight}},
	}, t.TempDir(), quietLogger())
	svc.sampleInterval = 0

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Home.Devices)
	assert.NotEmpty(t, snap.Host.Arch)
	assert.False(t, snap.Timestamp.IsZero())

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"devices_by_category":{"light":1}`)
}

func TestSnapshot_HomeError(t *testing.T) {
	svc := NewService(&stubHome{err: errors.New("store down")}, "", quietLogger())

	_, err := svc.Snapshot(context.Background())
	assert.EqualError(t, err, "store down")
}
