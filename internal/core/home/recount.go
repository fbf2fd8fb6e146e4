package home

import (
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// RecountRoom recomputes the light counters of one room from its devices and
// writes the room back when they changed. An empty roomID is a no-op. The
// updated room is returned, or nil when nothing was written.
func RecountRoom(tx repositories.Tx, roomID string) (*models.Room, error) {
	if roomID == "" {
		return nil, nil
	}

	room, err := tx.Rooms().GetByID(roomID)
	if err != nil {
		return nil, notFoundOr(err, KindRoom, roomID)
	}

	devices, err := tx.Devices().GetByRoom(roomID)
	if err != nil {
		return nil, err
	}

	on, total := 0, 0
	for _, d := range devices {
		if !d.IsLight() {
			continue
		}
		total++
		if d.Active {
			on++
		}
	}

	if room.LightsOn == on && room.LightsTotal == total {
		return nil, nil
	}
	room.LightsOn = on
	room.LightsTotal = total
	if err := tx.Rooms().Update(room); err != nil {
		return nil, err
	}
	return room, nil
}

// recountRooms recounts each distinct room once and records the changed rooms
func recountRooms(tx repositories.Tx, change *ChangeSet, roomIDs ...string) error {
	seen := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		room, err := RecountRoom(tx, id)
		if err != nil {
			return err
		}
		if room != nil && change != nil {
			change.Rooms = append(change.Rooms, room)
		}
	}
	return nil
}
