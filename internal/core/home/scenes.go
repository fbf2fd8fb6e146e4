package home

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// SceneID is the closed set of scene presets the executor knows how to apply
type SceneID int

const (
	SceneUnknown SceneID = iota
	SceneGoodMorning
	SceneMovieNight
	SceneFocusTime
	SceneGoodNight
)

var sceneNames = map[SceneID]string{
	SceneGoodMorning: "Good Morning",
	SceneMovieNight:  "Movie Night",
	SceneFocusTime:   "Focus Time",
	SceneGoodNight:   "Good Night",
}

func (id SceneID) String() string {
	if name, ok := sceneNames[id]; ok {
		return name
	}
	return "Unknown"
}

// ParseSceneID maps a scene name to its preset, ignoring case and spacing
func ParseSceneID(name string) SceneID {
	key := strings.ToLower(strings.Join(strings.Fields(name), ""))
	for id, known := range sceneNames {
		if strings.ToLower(strings.ReplaceAll(known, " ", "")) == key {
			return id
		}
	}
	return SceneUnknown
}

// transition sets active on every device accepted by match. The first
// matching transition of a preset wins.
type transition struct {
	match  func(d *models.Device) bool
	active bool
}

func named(name string) func(d *models.Device) bool {
	return func(d *models.Device) bool { return d.Name == name }
}

func inCategory(c models.Category) func(d *models.Device) bool {
	return func(d *models.Device) bool { return d.Category == c }
}

func presetTransitions(id SceneID) []transition {
	switch id {
	case SceneGoodMorning:
		return []transition{
			{match: named("Living Room Lights"), active: true},
			{match: named("Bedroom Lights"), active: true},
			{match: named("Front Door Lock"), active: false},
		}
	case SceneMovieNight:
		return []transition{
			{match: named("Kitchen Lights"), active: false},
			{match: named("Bedroom Lights"), active: false},
			{match: named("Living Room Lights"), active: true},
		}
	case SceneFocusTime:
		return []transition{
			{match: inCategory(models.CategoryLight), active: true},
		}
	case SceneGoodNight:
		return []transition{
			{match: inCategory(models.CategoryLight), active: false},
			{match: inCategory(models.CategoryLock), active: true},
		}
	case SceneUnknown:
		return nil
	}
	return nil
}

// SceneResult reports what a scene activation changed
type SceneResult struct {
	Scene   string           `json:"scene"`
	Matched bool             `json:"matched"`
	Devices []*models.Device `json:"devices"`
	Rooms   []*models.Room   `json:"rooms"`
}

// SceneInput is the payload for creating a scene
type SceneInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=50"`
}

// SceneUpdate is a partial scene update
type SceneUpdate struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
}

// ActivateScene applies the preset named name as one batch and recounts every
// touched room once. A name with no preset is logged and reported as a
// successful activation that changed nothing.
func (s *Service) ActivateScene(ctx context.Context, actor Actor, name string) (*SceneResult, error) {
	id := ParseSceneID(name)
	result := &SceneResult{Scene: strings.TrimSpace(name), Matched: id != SceneUnknown}
	if id == SceneUnknown {
		s.log.WithFields(logrus.Fields{"scene": name, "actor": actor.UserID}).Warn("Unknown scene activated, nothing to apply")
		return result, nil
	}
	result.Scene = id.String()
	rules := presetTransitions(id)

	change, err := s.mutate(ctx, "activate_scene", actor, func(tx repositories.Tx, change *ChangeSet) error {
		change.Scene = id.String()
		devices, err := tx.Devices().GetAll()
		if err != nil {
			return err
		}

		var written []*models.Device
		var rooms []string
		for _, d := range devices {
			for _, rule := range rules {
				if !rule.match(d) {
					continue
				}
				if d.Active != rule.active {
					d.Active = rule.active
					d.LastChanged = s.now()
					d.ApplyStatus()
					if err := tx.Devices().Update(d); err != nil {
						return err
					}
					written = append(written, d)
					rooms = append(rooms, d.RoomID)
				}
				break
			}
		}

		if err := recountRooms(tx, change, rooms...); err != nil {
			return err
		}
		if len(written) == 0 {
			return nil
		}
		return finishDevices(tx, change, written...)
	})
	if err != nil {
		return nil, err
	}

	result.Devices = change.Devices
	result.Rooms = change.Rooms
	s.log.WithFields(logrus.Fields{
		"scene":   result.Scene,
		"changed": len(result.Devices),
		"actor":   actor.UserID,
	}).Info("Scene activated")
	return result, nil
}

// ActivateSceneByID activates the preset matching the stored scene's name
func (s *Service) ActivateSceneByID(ctx context.Context, actor Actor, id string) (*SceneResult, error) {
	scene, err := s.GetScene(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ActivateScene(ctx, actor, scene.Name)
}

// FindSceneByName returns the stored scene whose name matches, ignoring case
func (s *Service) FindSceneByName(ctx context.Context, name string) (*models.Scene, error) {
	scenes, err := s.ListScenes(ctx)
	if err != nil {
		return nil, err
	}
	for _, sc := range scenes {
		if strings.EqualFold(sc.Name, strings.TrimSpace(name)) {
			return sc, nil
		}
	}
	return nil, &NotFoundError{Kind: KindScene, Key: name}
}

// ListScenes returns every scene
func (s *Service) ListScenes(ctx context.Context) ([]*models.Scene, error) {
	var scenes []*models.Scene
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		scenes, err = tx.Scenes().GetAll()
		return err
	})
	return scenes, err
}

// GetScene returns one scene
func (s *Service) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	var scene *models.Scene
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		scene, err = tx.Scenes().GetByID(id)
		return notFoundOr(err, KindScene, id)
	})
	return scene, err
}

// CreateScene adds a scene
func (s *Service) CreateScene(ctx context.Context, actor Actor, input SceneInput) (*models.Scene, error) {
	if err := requireAdmin(actor, "create scenes"); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	scene := &models.Scene{
		ID:          s.newID(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Icon:        input.Icon,
	}
	if scene.Icon == "" {
		scene.Icon = "Sparkles"
	}

	_, err := s.mutate(ctx, "create_scene", actor, func(tx repositories.Tx, change *ChangeSet) error {
		if err := tx.Scenes().Create(scene); err != nil {
			return err
		}
		change.Scenes = append(change.Scenes, scene)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}

// UpdateScene merges upd into the scene
func (s *Service) UpdateScene(ctx context.Context, actor Actor, id string, upd SceneUpdate) (*models.Scene, error) {
	if err := requireAdmin(actor, "update scenes"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if err := requireText("name", upd.Name); err != nil {
		return nil, err
	}

	var scene *models.Scene
	_, err := s.mutate(ctx, "update_scene", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if scene, err = tx.Scenes().GetByID(id); err != nil {
			return notFoundOr(err, KindScene, id)
		}
		if upd.Name != nil {
			scene.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			scene.Description = *upd.Description
		}
		if upd.Icon != nil {
			scene.Icon = *upd.Icon
		}
		if err := tx.Scenes().Update(scene); err != nil {
			return err
		}
		change.Scenes = append(change.Scenes, scene)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}

// DeleteScene removes a scene
func (s *Service) DeleteScene(ctx context.Context, actor Actor, id string) (*models.Scene, error) {
	if err := requireAdmin(actor, "delete scenes"); err != nil {
		return nil, err
	}

	var scene *models.Scene
	_, err := s.mutate(ctx, "delete_scene", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if scene, err = tx.Scenes().GetByID(id); err != nil {
			return notFoundOr(err, KindScene, id)
		}
		if err := tx.Scenes().Delete(id); err != nil {
			return notFoundOr(err, KindScene, id)
		}
		change.Removed = append(change.Removed, Ref{Kind: KindScene, ID: id})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}
