package home

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// RoomInput is the payload for creating a room
type RoomInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Temp int    `json:"temp" validate:"gte=-50,lte=60"`
}

// RoomUpdate is a partial room update
type RoomUpdate struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
	Temp *int    `json:"temp" validate:"omitempty,gte=-50,lte=60"`
}

// ListRooms returns every room
func (s *Service) ListRooms(ctx context.Context) ([]*models.Room, error) {
	var rooms []*models.Room
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		rooms, err = tx.Rooms().GetAll()
		return err
	})
	return rooms, err
}

// GetRoom returns a room by id or name
func (s *Service) GetRoom(ctx context.Context, ref string) (*models.Room, error) {
	var room *models.Room
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		room, err = resolveRoom(tx, ref)
		return err
	})
	return room, err
}

// RoomDevices returns the devices assigned to a room
func (s *Service) RoomDevices(ctx context.Context, ref string) ([]*models.Device, error) {
	var devices []*models.Device
	err := s.view(ctx, func(tx repositories.Tx) error {
		room, err := resolveRoom(tx, ref)
		if err != nil {
			return err
		}
		if devices, err = tx.Devices().GetByRoom(room.ID); err != nil {
			return err
		}
		decorateDevices(devices, map[string]string{room.ID: room.Name})
		return nil
	})
	return devices, err
}

// CreateRoom adds an empty room
func (s *Service) CreateRoom(ctx context.Context, actor Actor, input RoomInput) (*models.Room, error) {
	if err := requireAdmin(actor, "create rooms"); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	room := &models.Room{ID: s.newID(), Name: name, Temp: input.Temp}
	change, err := s.mutate(ctx, "create_room", actor, func(tx repositories.Tx, change *ChangeSet) error {
		if err := tx.Rooms().Create(room); err != nil {
			return roomConflict(err)
		}
		change.Rooms = append(change.Rooms, room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change.Rooms[0], nil
}

// UpdateRoom renames a room or changes its target temperature. Devices keep
// referencing the room by id, so a rename leaves them attached.
func (s *Service) UpdateRoom(ctx context.Context, actor Actor, id string, upd RoomUpdate) (*models.Room, error) {
	if err := requireAdmin(actor, "update rooms"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if err := requireText("name", upd.Name); err != nil {
		return nil, err
	}

	change, err := s.mutate(ctx, "update_room", actor, func(tx repositories.Tx, change *ChangeSet) error {
		room, err := tx.Rooms().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindRoom, id)
		}
		if upd.Name != nil {
			room.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Temp != nil {
			room.Temp = *upd.Temp
		}
		if err := tx.Rooms().Update(room); err != nil {
			return roomConflict(err)
		}
		change.Rooms = append(change.Rooms, room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change.Rooms[0], nil
}

// DeleteRoom removes a room and unassigns its devices in the same transaction
func (s *Service) DeleteRoom(ctx context.Context, actor Actor, id string) (*models.Room, error) {
	if err := requireAdmin(actor, "delete rooms"); err != nil {
		return nil, err
	}

	var removed *models.Room
	_, err := s.mutate(ctx, "delete_room", actor, func(tx repositories.Tx, change *ChangeSet) error {
		room, err := tx.Rooms().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindRoom, id)
		}
		devices, err := tx.Devices().GetByRoom(id)
		if err != nil {
			return err
		}
		for _, d := range devices {
			d.RoomID = ""
			if err := tx.Devices().Update(d); err != nil {
				return err
			}
		}
		if err := tx.Rooms().Delete(id); err != nil {
			return notFoundOr(err, KindRoom, id)
		}
		removed = room
		change.Removed = append(change.Removed, Ref{Kind: KindRoom, ID: id})
		if len(devices) == 0 {
			return nil
		}
		return finishDevices(tx, change, devices...)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// SetAllLights switches every light in the room addressed by id or name
// in one batch with a single recount
func (s *Service) SetAllLights(ctx context.Context, actor Actor, roomRef string, on bool) (*models.Room, error) {
	var result *models.Room
	_, err := s.mutate(ctx, "set_all_lights", actor, func(tx repositories.Tx, change *ChangeSet) error {
		room, err := resolveRoom(tx, roomRef)
		if err != nil {
			return err
		}
		devices, err := tx.Devices().GetByRoom(room.ID)
		if err != nil {
			return err
		}

		var written []*models.Device
		for _, d := range devices {
			if !d.IsLight() || d.Active == on {
				continue
			}
			d.Active = on
			d.LastChanged = s.now()
			d.ApplyStatus()
			if err := tx.Devices().Update(d); err != nil {
				return err
			}
			written = append(written, d)
		}

		updated, err := RecountRoom(tx, room.ID)
		if err != nil {
			return err
		}
		if updated != nil {
			room = updated
			change.Rooms = append(change.Rooms, updated)
		}
		result = room
		if len(written) == 0 {
			return nil
		}
		return finishDevices(tx, change, written...)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"room":      result.Name,
		"on":        on,
		"lights_on": result.LightsOn,
	}).Info("Room lights switched")
	return result, nil
}

func roomConflict(err error) error {
	if errors.Is(err, repositories.ErrConflict) {
		return &ValidationError{Field: "name", Message: "Room name already exists"}
	}
	return err
}
