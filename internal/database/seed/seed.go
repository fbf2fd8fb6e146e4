// Package seed loads the initial household into an empty store
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

//go:embed default.yaml
var defaultData []byte

// Data is the seed file layout
type Data struct {
	Users       []User       `yaml:"users"`
	Rooms       []Room       `yaml:"rooms"`
	Devices     []Device     `yaml:"devices"`
	Scenes      []Scene      `yaml:"scenes"`
	Automations []Automation `yaml:"automations"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type Room struct {
	Name string `yaml:"name"`
	Temp int    `yaml:"temp"`
}

// Device is a seeded device. Status and StatusVariant only apply to
// categories whose status is not derived.
type Device struct {
	Name          string `yaml:"name"`
	Room          string `yaml:"room"`
	Category      string `yaml:"category"`
	Icon          string `yaml:"icon"`
	Active        bool   `yaml:"active"`
	Status        string `yaml:"status"`
	StatusVariant string `yaml:"status_variant"`
}

type Scene struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

type Automation struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Trigger     string `yaml:"trigger"`
	Action      string `yaml:"action"`
	Icon        string `yaml:"icon"`
	Active      bool   `yaml:"active"`
	LastRun     string `yaml:"last_run"`
}

// Default returns the built-in household
func Default() (*Data, error) {
	return Parse(defaultData)
}

// Load reads a seed file, falling back to the built-in data when path is empty
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes seed YAML
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &data, nil
}

// Result counts the records written by Apply
type Result struct {
	Applied     bool
	Users       int
	Rooms       int
	Devices     int
	Scenes      int
	Automations int
}

// Apply writes data in one transaction when the store holds no rooms and no
// users. Room light counters are computed from the seeded devices.
func Apply(ctx context.Context, store repositories.Store, data *Data, bcryptCost int, logger *logrus.Logger) (*Result, error) {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	hashes := make([]string, len(data.Users))
	for i, u := range data.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}
		hashes[i] = string(hash)
	}

	result := &Result{}
	err := store.Update(ctx, func(tx repositories.Tx) error {
		empty, err := isEmpty(tx)
		if err != nil || !empty {
			return err
		}
		result.Applied = true
		now := time.Now().UTC()

		for i, u := range data.Users {
			role := models.Role(u.Role)
			if !role.Valid() {
				role = models.RoleUser
			}
			if err := tx.Users().Create(&models.User{
				ID:           uuid.NewString(),
				Name:         u.Name,
				Email:        models.NormalizeEmail(u.Email),
				Role:         role,
				PasswordHash: hashes[i],
			}); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
			result.Users++
		}

		roomIDs := make(map[string]string, len(data.Rooms))
		for _, r := range data.Rooms {
			room := &models.Room{ID: uuid.NewString(), Name: r.Name, Temp: r.Temp}
			if err := tx.Rooms().Create(room); err != nil {
				return fmt.Errorf("room %s: %w", r.Name, err)
			}
			roomIDs[r.Name] = room.ID
			result.Rooms++
		}

		for _, d := range data.Devices {
			device := &models.Device{
				ID:            uuid.NewString(),
				Name:          d.Name,
				Category:      models.ParseCategory(d.Category),
				Icon:          d.Icon,
				Active:        d.Active,
				Status:        d.Status,
				StatusVariant: models.StatusVariant(d.StatusVariant),
				LastChanged:   now,
			}
			if d.Room != "" {
				id, ok := roomIDs[d.Room]
				if !ok {
					return fmt.Errorf("device %s references unknown room %s", d.Name, d.Room)
				}
				device.RoomID = id
			}
			if device.Icon == "" {
				device.Icon = home.DefaultIcon(device.Category)
			}
			if device.Status == "" {
				device.Status = "Off"
				device.StatusVariant = models.VariantSecondary
			}
			device.ApplyStatus()
			if err := tx.Devices().Create(device); err != nil {
				return fmt.Errorf("device %s: %w", d.Name, err)
			}
			result.Devices++
		}

		for _, id := range roomIDs {
			if _, err := home.RecountRoom(tx, id); err != nil {
				return err
			}
		}

		for _, s := range data.Scenes {
			if err := tx.Scenes().Create(&models.Scene{
				ID:          uuid.NewString(),
				Name:        s.Name,
				Description: s.Description,
				Icon:        s.Icon,
			}); err != nil {
				return fmt.Errorf("scene %s: %w", s.Name, err)
			}
			result.Scenes++
		}

		for _, a := range data.Automations {
			automation := &models.Automation{
				ID:          uuid.NewString(),
				Name:        a.Name,
				Description: a.Description,
				Trigger:     a.Trigger,
				Action:      a.Action,
				Icon:        a.Icon,
				Active:      a.Active,
				LastRun:     a.LastRun,
			}
			if automation.LastRun == "" {
				automation.LastRun = "Never"
			}
			automation.ApplyStatus()
			if err := tx.Automations().Create(automation); err != nil {
				return fmt.Errorf("automation %s: %w", a.Name, err)
			}
			result.Automations++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	if result.Applied {
		logger.WithFields(logrus.Fields{
			"users":       result.Users,
			"rooms":       result.Rooms,
			"devices":     result.Devices,
			"scenes":      result.Scenes,
			"automations": result.Automations,
		}).Info("Seed data applied")
	} else {
		logger.Debug("Store already populated, skipping seed")
	}
	return result, nil
}

func isEmpty(tx repositories.Tx) (bool, error) {
	users, err := tx.Users().GetAll()
	if err != nil {
		return false, err
	}
	rooms, err := tx.Rooms().GetAll()
	if err != nil {
		return false, err
	}
	return len(users) == 0 && len(rooms) == 0, nil
}
