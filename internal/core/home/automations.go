package home

import (
	"context"
	"strings"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// AutomationInput is the payload for creating an automation
type AutomationInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Trigger     string `json:"trigger" validate:"max=200"`
	Action      string `json:"action" validate:"max=200"`
	Icon        string `json:"icon" validate:"max=50"`
}

// AutomationUpdate is a partial automation update
type AutomationUpdate struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Trigger     *string `json:"trigger" validate:"omitempty,max=200"`
	Action      *string `json:"action" validate:"omitempty,max=200"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
	Active      *bool   `json:"active"`
}

// ListAutomations returns every automation
func (s *Service) ListAutomations(ctx context.Context) ([]*models.Automation, error) {
	var automations []*models.Automation
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		automations, err = tx.Automations().GetAll()
		return err
	})
	return automations, err
}

// GetAutomation returns one automation
func (s *Service) GetAutomation(ctx context.Context, id string) (*models.Automation, error) {
	var automation *models.Automation
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		automation, err = tx.Automations().GetByID(id)
		return notFoundOr(err, KindAutomation, id)
	})
	return automation, err
}

// FindAutomationByName returns the automation whose name matches, ignoring case
func (s *Service) FindAutomationByName(ctx context.Context, name string) (*models.Automation, error) {
	automations, err := s.ListAutomations(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range automations {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return nil, &NotFoundError{Kind: KindAutomation, Key: name}
}

// CreateAutomation adds an active automation that has never run
func (s *Service) CreateAutomation(ctx context.Context, actor Actor, input AutomationInput) (*models.Automation, error) {
	if err := requireAdmin(actor, "create automations"); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	automation := &models.Automation{
		ID:          s.newID(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Trigger:     input.Trigger,
		Action:      input.Action,
		Icon:        input.Icon,
		Active:      true,
		LastRun:     "Never",
	}
	if automation.Icon == "" {
		automation.Icon = "Zap"
	}
	automation.ApplyStatus()

	_, err := s.mutate(ctx, "create_automation", actor, func(tx repositories.Tx, change *ChangeSet) error {
		if err := tx.Automations().Create(automation); err != nil {
			return err
		}
		change.Automations = append(change.Automations, automation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return automation, nil
}

// UpdateAutomation merges upd into the automation and re-derives its status
func (s *Service) UpdateAutomation(ctx context.Context, actor Actor, id string, upd AutomationUpdate) (*models.Automation, error) {
	if err := requireAdmin(actor, "update automations"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if err := requireText("name", upd.Name); err != nil {
		return nil, err
	}

	var automation *models.Automation
	_, err := s.mutate(ctx, "update_automation", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if automation, err = tx.Automations().GetByID(id); err != nil {
			return notFoundOr(err, KindAutomation, id)
		}
		if upd.Name != nil {
			automation.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			automation.Description = *upd.Description
		}
		if upd.Trigger != nil {
			automation.Trigger = *upd.Trigger
		}
		if upd.Action != nil {
			automation.Action = *upd.Action
		}
		if upd.Icon != nil {
			automation.Icon = *upd.Icon
		}
		if upd.Active != nil {
			automation.Active = *upd.Active
		}
		automation.ApplyStatus()
		if err := tx.Automations().Update(automation); err != nil {
			return err
		}
		change.Automations = append(change.Automations, automation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return automation, nil
}

// DeleteAutomation removes an automation
func (s *Service) DeleteAutomation(ctx context.Context, actor Actor, id string) (*models.Automation, error) {
	if err := requireAdmin(actor, "delete automations"); err != nil {
		return nil, err
	}

	var automation *models.Automation
	_, err := s.mutate(ctx, "delete_automation", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if automation, err = tx.Automations().GetByID(id); err != nil {
			return notFoundOr(err, KindAutomation, id)
		}
		if err := tx.Automations().Delete(id); err != nil {
			return notFoundOr(err, KindAutomation, id)
		}
		change.Removed = append(change.Removed, Ref{Kind: KindAutomation, ID: id})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return automation, nil
}

// ToggleAutomation sets active to *force, or flips it when force is nil.
// Status is always re-derived, so repeating a forced toggle is idempotent.
func (s *Service) ToggleAutomation(ctx context.Context, actor Actor, id string, force *bool) (*models.Automation, error) {
	var automation *models.Automation
	_, err := s.mutate(ctx, "toggle_automation", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if automation, err = tx.Automations().GetByID(id); err != nil {
			return notFoundOr(err, KindAutomation, id)
		}
		if force != nil {
			automation.Active = *force
		} else {
			automation.Active = !automation.Active
		}
		automation.ApplyStatus()
		if err := tx.Automations().Update(automation); err != nil {
			return err
		}
		change.Automations = append(change.Automations, automation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return automation, nil
}
