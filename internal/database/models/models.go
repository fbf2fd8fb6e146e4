package models

import (
	"strings"
	"time"
)

// Category is the closed set of device kinds
type Category string

const (
	CategoryLight    Category = "light"
	CategoryLock     Category = "lock"
	CategoryCamera   Category = "camera"
	CategoryAC       Category = "ac"
	CategorySecurity Category = "security"
	CategoryOther    Category = "other"
)

// Categories lists every category in display order
var Categories = []Category{CategoryLight, CategoryLock, CategoryCamera, CategoryAC, CategorySecurity, CategoryOther}

// ParseCategory maps free text such as "Light" or "ceiling lights" to a Category.
// Matching is by substring in the order light, lock, camera, ac; anything
// else that is not exactly "security" is CategoryOther.
func ParseCategory(raw string) Category {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "light"):
		return CategoryLight
	case strings.Contains(s, "lock"):
		return CategoryLock
	case strings.Contains(s, "camera"):
		return CategoryCamera
	case strings.Contains(s, "ac"):
		return CategoryAC
	case s == string(CategorySecurity):
		return CategorySecurity
	default:
		return CategoryOther
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// StatusVariant is the visual severity of a device status
type StatusVariant string

const (
	VariantDefault     StatusVariant = "default"
	VariantSecondary   StatusVariant = "secondary"
	VariantDestructive StatusVariant = "destructive"
)

// DeriveStatus returns the status label and variant for a device of the given
// category. ok is false for categories whose status is not derived.
func DeriveStatus(category Category, active bool) (status string, variant StatusVariant, ok bool) {
	switch category {
	case CategoryLight:
		if active {
			return "On", VariantDefault, true
		}
		return "Off", VariantSecondary, true
	case CategoryLock:
		if active {
			return "Locked", VariantDefault, true
		}
		return "Unlocked", VariantDestructive, true
	case CategoryCamera:
		if active {
			return "Recording", VariantDefault, true
		}
		return "Off", VariantSecondary, true
	case CategoryAC:
		if active {
			return "Cooling", VariantDefault, true
		}
		return "Off", VariantSecondary, true
	case CategorySecurity, CategoryOther:
		return "", "", false
	}
	return "", "", false
}

// Device is a controllable device. RoomID is empty for unassigned devices.
type Device struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	RoomID        string        `json:"room_id" db:"room_id"`
	Location      string        `json:"location" db:"-"`
	Category      Category      `json:"category" db:"category"`
	Icon          string        `json:"icon" db:"icon"`
	Active        bool          `json:"active" db:"active"`
	Status        string        `json:"status" db:"status"`
	StatusVariant StatusVariant `json:"status_variant" db:"status_variant"`
	LastChanged   time.Time     `json:"last_changed" db:"last_changed"`
	Time          string        `json:"time" db:"-"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ApplyStatus sets Status and StatusVariant from Category and Active.
// Devices in categories without a derived status keep their current values.
func (d *Device) ApplyStatus() {
	if status, variant, ok := DeriveStatus(d.Category, d.Active); ok {
		d.Status = status
		d.StatusVariant = variant
	}
}

// IsLight reports whether the device counts towards room light totals
func (d *Device) IsLight() bool {
	return d.Category == CategoryLight
}

// Room groups devices and carries the materialized light counters
type Room struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Temp        int       `json:"temp" db:"temp"`
	LightsOn    int       `json:"lights_on" db:"lights_on"`
	LightsTotal int       `json:"lights_total" db:"lights_total"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Scene is a named preset; activation is resolved by name
type Scene struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Automation statuses
const (
	AutomationActive = "Active"
	AutomationPaused = "Paused"
)

// Automation is a user-toggleable rule. Trigger and Action are descriptive only.
type Automation struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Trigger     string    `json:"trigger" db:"trigger"`
	Action      string    `json:"action" db:"action"`
	Icon        string    `json:"icon" db:"icon"`
	Active      bool      `json:"active" db:"active"`
	Status      string    `json:"status" db:"status"`
	LastRun     string    `json:"last_run" db:"last_run"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ApplyStatus derives Status from Active
func (a *Automation) ApplyStatus() {
	if a.Active {
		a.Status = AutomationActive
	} else {
		a.Status = AutomationPaused
	}
}

// Role gates access to entity mutations
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a panel account
type User struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Role         Role       `json:"role" db:"role"`
	PasswordHash string     `json:"-" db:"password_hash"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	LastSeen     string     `json:"last_seen,omitempty" db:"-"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// NormalizeEmail lower-cases and trims an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
