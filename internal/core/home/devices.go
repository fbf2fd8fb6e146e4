package home

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

var defaultIcons = map[models.Category]string{
	models.CategoryLight:    "Lightbulb",
	models.CategoryLock:     "Lock",
	models.CategoryCamera:   "Camera",
	models.CategoryAC:       "AirVent",
	models.CategorySecurity: "Bell",
	models.CategoryOther:    "Zap",
}

// DefaultIcon returns the icon used for a new device of the given category
func DefaultIcon(c models.Category) string {
	if icon, ok := defaultIcons[c]; ok {
		return icon
	}
	return "Zap"
}

// DeviceInput is the payload for creating a device. Room accepts a room id
// or name; empty leaves the device unassigned.
type DeviceInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Room     string `json:"room" validate:"max=100"`
	Category string `json:"category" validate:"required"`
	Icon     string `json:"icon" validate:"max=50"`
	Active   bool   `json:"active"`
}

// DeviceUpdate is a partial device update; nil fields are left unchanged.
// An empty Room unassigns the device.
type DeviceUpdate struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Room     *string `json:"room" validate:"omitempty,max=100"`
	Category *string `json:"category"`
	Icon     *string `json:"icon" validate:"omitempty,max=50"`
	Active   *bool   `json:"active"`
}

// ListDevices returns every device with its location and time label resolved
func (s *Service) ListDevices(ctx context.Context) ([]*models.Device, error) {
	var devices []*models.Device
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		if devices, err = tx.Devices().GetAll(); err != nil {
			return err
		}
		names, err := roomNameIndex(tx)
		if err != nil {
			return err
		}
		decorateDevices(devices, names)
		return nil
	})
	return devices, err
}

// GetDevice returns one device
func (s *Service) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var device *models.Device
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		device, err = loadDevice(tx, id)
		return err
	})
	return device, err
}

// CreateDevice adds a device and recounts its room
func (s *Service) CreateDevice(ctx context.Context, actor Actor, input DeviceInput) (*models.Device, error) {
	if err := requireAdmin(actor, "create devices"); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	category := models.ParseCategory(input.Category)
	device := &models.Device{
		ID:            s.newID(),
		Name:          strings.TrimSpace(input.Name),
		Category:      category,
		Icon:          input.Icon,
		Active:        input.Active,
		Status:        "Off",
		StatusVariant: models.VariantSecondary,
		LastChanged:   s.now(),
	}
	if device.Icon == "" {
		device.Icon = DefaultIcon(category)
	}
	device.ApplyStatus()

	change, err := s.mutate(ctx, "create_device", actor, func(tx repositories.Tx, change *ChangeSet) error {
		room, err := resolveRoomField(tx, input.Room)
		if err != nil {
			return err
		}
		if room != nil {
			device.RoomID = room.ID
		}
		if err := tx.Devices().Create(device); err != nil {
			return err
		}
		if err := recountRooms(tx, change, device.RoomID); err != nil {
			return err
		}
		return finishDevices(tx, change, device)
	})
	if err != nil {
		return nil, err
	}
	return change.Devices[0], nil
}

// UpdateDevice merges upd into the device, re-deriving status and recounting
// the old and new rooms
func (s *Service) UpdateDevice(ctx context.Context, actor Actor, id string, upd DeviceUpdate) (*models.Device, error) {
	if err := requireAdmin(actor, "update devices"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if err := requireText("name", upd.Name); err != nil {
		return nil, err
	}
	if err := requireText("category", upd.Category); err != nil {
		return nil, err
	}

	change, err := s.mutate(ctx, "update_device", actor, func(tx repositories.Tx, change *ChangeSet) error {
		device, err := tx.Devices().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindDevice, id)
		}
		oldRoom := device.RoomID

		if upd.Name != nil {
			device.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Icon != nil {
			device.Icon = *upd.Icon
		}
		if upd.Room != nil {
			room, err := resolveRoomField(tx, *upd.Room)
			if err != nil {
				return err
			}
			device.RoomID = ""
			if room != nil {
				device.RoomID = room.ID
			}
		}
		if upd.Category != nil {
			device.Category = models.ParseCategory(*upd.Category)
		}
		if upd.Active != nil && *upd.Active != device.Active {
			device.Active = *upd.Active
			device.LastChanged = s.now()
		}
		device.ApplyStatus()

		if err := tx.Devices().Update(device); err != nil {
			return err
		}
		if err := recountRooms(tx, change, oldRoom, device.RoomID); err != nil {
			return err
		}
		return finishDevices(tx, change, device)
	})
	if err != nil {
		return nil, err
	}
	return change.Devices[0], nil
}

// DeleteDevice removes a device and recounts the room it was in
func (s *Service) DeleteDevice(ctx context.Context, actor Actor, id string) (*models.Device, error) {
	if err := requireAdmin(actor, "delete devices"); err != nil {
		return nil, err
	}

	var removed *models.Device
	_, err := s.mutate(ctx, "delete_device", actor, func(tx repositories.Tx, change *ChangeSet) error {
		device, err := tx.Devices().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindDevice, id)
		}
		if err := tx.Devices().Delete(id); err != nil {
			return notFoundOr(err, KindDevice, id)
		}
		change.Removed = append(change.Removed, Ref{Kind: KindDevice, ID: id})
		removed = device
		return recountRooms(tx, change, device.RoomID)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ToggleDevice sets the device's active flag to *force, or flips it when
// force is nil. Status, last change time and the room counters follow.
func (s *Service) ToggleDevice(ctx context.Context, actor Actor, id string, force *bool) (*models.Device, error) {
	change, err := s.mutate(ctx, "toggle_device", actor, func(tx repositories.Tx, change *ChangeSet) error {
		device, err := tx.Devices().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindDevice, id)
		}

		next := !device.Active
		if force != nil {
			next = *force
		}
		if next != device.Active {
			device.Active = next
			device.LastChanged = s.now()
		}
		device.ApplyStatus()

		if err := tx.Devices().Update(device); err != nil {
			return err
		}
		if err := recountRooms(tx, change, device.RoomID); err != nil {
			return err
		}
		return finishDevices(tx, change, device)
	})
	if err != nil {
		return nil, err
	}

	device := change.Devices[0]
	s.log.WithFields(logrus.Fields{
		"device_id": device.ID,
		"active":    device.Active,
		"actor":     actor.UserID,
	}).Debug("Device toggled")
	return device, nil
}

// FindDeviceByName returns the first device whose name matches, ignoring case
func (s *Service) FindDeviceByName(ctx context.Context, name string) (*models.Device, error) {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return nil, &NotFoundError{Kind: KindDevice, Key: name}
}

func loadDevice(tx repositories.Tx, id string) (*models.Device, error) {
	device, err := tx.Devices().GetByID(id)
	if err != nil {
		return nil, notFoundOr(err, KindDevice, id)
	}
	names, err := roomNameIndex(tx)
	if err != nil {
		return nil, err
	}
	decorateDevices([]*models.Device{device}, names)
	return device, nil
}

// finishDevices decorates written devices and records them in the change set
func finishDevices(tx repositories.Tx, change *ChangeSet, devices ...*models.Device) error {
	names, err := roomNameIndex(tx)
	if err != nil {
		return err
	}
	decorateDevices(devices, names)
	change.Devices = append(change.Devices, devices...)
	return nil
}

// resolveRoom finds a room by id, then by name
func resolveRoom(tx repositories.Tx, ref string) (*models.Room, error) {
	ref = strings.TrimSpace(ref)
	room, err := tx.Rooms().GetByID(ref)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	room, err = tx.Rooms().GetByName(ref)
	if err != nil {
		return nil, notFoundOr(err, KindRoom, ref)
	}
	return room, nil
}

// resolveRoomField resolves a room reference given in an input payload; an
// unknown room is a validation failure and an empty reference means none
func resolveRoomField(tx repositories.Tx, ref string) (*models.Room, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	room, err := resolveRoom(tx, ref)
	if IsNotFound(err) {
		return nil, &ValidationError{Field: "room", Message: "unknown room " + ref}
	}
	return room, err
}
