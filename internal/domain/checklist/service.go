package checklist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/internal/platform/db"
)

var (
	ErrTemplateNotFound = errors.New("checklist template not found")
	ErrTemplateInactive = errors.New("checklist template is not active")
	ErrEmptyTemplate    = errors.New("checklist template has no items")
	ErrNoOperationType  = errors.New("patient operation_type is required to generate a checklist")
	ErrInstanceNotFound = errors.New("checklist not found")
	ErrItemNotFound     = errors.New("checklist item not found")
)

// Service is the checklist instance engine. Item mutations and the patient
// status recompute they trigger always run inside one transaction.
type Service struct {
	templates TemplateRepository
	instances InstanceRepository
	checker   *Checker
	patients  *patient.Service
	tx        db.TxRunner
}

func NewService(templates TemplateRepository, instances InstanceRepository, checker *Checker, patients *patient.Service, tx db.TxRunner) *Service {
	return &Service{templates: templates, instances: instances, checker: checker, patients: patients, tx: tx}
}

// resolveTemplate picks the template to instantiate: an explicit id must
// exist and be active; otherwise the highest active version for the
// patient's operation type.
func (s *Service) resolveTemplate(ctx context.Context, p *patient.Patient, templateID *uuid.UUID) (*Template, error) {
	if templateID != nil {
		t, err := s.templates.GetTemplate(ctx, *templateID)
		if err != nil {
			return nil, err
		}
		if !t.IsActive {
			return nil, ErrTemplateInactive
		}
		return t, nil
	}
	if p.OperationType == nil || *p.OperationType == "" {
		return nil, ErrNoOperationType
	}
	return s.templates.ActiveForOperation(ctx, *p.OperationType)
}

// Generate creates a checklist instance for the patient with one item per
// template item, all not done. Instance and items are created atomically.
// Calling it twice simply stacks a second instance; readers always take the
// newest one.
func (s *Service) Generate(ctx context.Context, actor auth.Actor, patientID uuid.UUID, templateID *uuid.UUID) (*Instance, error) {
	p, err := s.patients.Authorize(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	var inst *Instance
	err = s.tx(ctx, func(ctx context.Context) error {
		tmpl, err := s.resolveTemplate(ctx, p, templateID)
		if err != nil {
			return err
		}
		itemTemplates, err := s.templates.ListItemTemplates(ctx, tmpl.ID)
		if err != nil {
			return err
		}
		if len(itemTemplates) == 0 {
			return ErrEmptyTemplate
		}
		inst = &Instance{PatientID: p.ID, TemplateID: tmpl.ID, Status: InstanceInProgress}
		if err := s.instances.CreateInstance(ctx, inst); err != nil {
			return err
		}
		items := make([]Item, len(itemTemplates))
		for i, it := range itemTemplates {
			items[i] = Item{InstanceID: inst.ID, ItemTemplateID: it.ID}
		}
		if err := s.instances.CreateItems(ctx, items); err != nil {
			return err
		}
		inst.Items = items
		return s.patients.RecomputeStatus(ctx, p.ID, 0, len(items))
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// UpdateItem patches one item. Marking an item done is gated by the
// precondition checker; unmarking never is. The recompute of the instance
// status and the patient status happens in the same transaction, so a
// half-applied update is never observable.
func (s *Service) UpdateItem(ctx context.Context, actor auth.Actor, instanceID, itemID uuid.UUID, patch ItemPatch) (*Item, *Progress, error) {
	var (
		updated *Item
		prog    *Progress
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		inst, err := s.instances.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		p, err := s.patients.Authorize(ctx, actor, inst.PatientID)
		if err != nil {
			return err
		}
		item, err := s.instances.GetItem(ctx, inst.ID, itemID)
		if err != nil {
			return err
		}
		if patch.Done != nil && *patch.Done && !item.Done {
			tmpl, err := s.templates.GetItemTemplate(ctx, item.ItemTemplateID)
			if err != nil {
				return err
			}
			if err := s.checker.CanComplete(ctx, tmpl, item, p.ID, patch); err != nil {
				return err
			}
		}
		if patch.Done != nil {
			if *patch.Done && !item.Done {
				now := time.Now().UTC()
				item.DoneAt = &now
			}
			if !*patch.Done {
				item.DoneAt = nil
			}
			item.Done = *patch.Done
		}
		if patch.Value != nil {
			item.Value = patch.Value
		}
		if patch.Note != nil {
			item.Note = patch.Note
		}
		if err := s.instances.UpdateItem(ctx, item); err != nil {
			return err
		}
		updated = item
		prog, err = s.recompute(ctx, inst)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, prog, nil
}

// recompute re-reads the full item set, updates the instance flag and the
// derived patient status. Must run inside the caller's transaction.
func (s *Service) recompute(ctx context.Context, inst *Instance) (*Progress, error) {
	items, err := s.instances.ListItems(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	prog := progressOf(items)
	next := InstanceInProgress
	if prog.Total > 0 && prog.Done == prog.Total {
		next = InstanceCompleted
	}
	if next != inst.Status {
		if err := s.instances.UpdateInstanceStatus(ctx, inst.ID, next); err != nil {
			return nil, err
		}
		inst.Status = next
	}
	if err := s.patients.RecomputeStatus(ctx, inst.PatientID, prog.Done, prog.Total); err != nil {
		return nil, err
	}
	return prog, nil
}

func progressOf(items []Item) *Progress {
	total := len(items)
	done := 0
	for _, it := range items {
		if it.Done {
			done++
		}
	}
	percent := 0
	if total > 0 {
		// Integer rounding, half up.
		percent = (done*100 + total/2) / total
	}
	return &Progress{Done: done, Total: total, Percent: percent}
}

// ProgressFor computes the completion summary of one instance.
func (s *Service) ProgressFor(ctx context.Context, actor auth.Actor, instanceID uuid.UUID) (*Progress, error) {
	inst, err := s.instances.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, actor, inst.PatientID); err != nil {
		return nil, err
	}
	items, err := s.instances.ListItems(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	return progressOf(items), nil
}

// LatestForPatient returns the newest instance with its items loaded.
func (s *Service) LatestForPatient(ctx context.Context, actor auth.Actor, patientID uuid.UUID) (*Instance, error) {
	if _, err := s.patients.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	inst, err := s.instances.LatestForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	items, err := s.instances.ListItems(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	inst.Items = items
	return inst, nil
}

// ItemBelongsToLatest reports whether itemID is part of the patient's newest
// checklist. Used by evidence recorders that tag a panel or file to an item.
func (s *Service) ItemBelongsToLatest(ctx context.Context, patientID, itemID uuid.UUID) (bool, error) {
	inst, err := s.instances.LatestForPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.instances.GetItem(ctx, inst.ID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTemplate stores a template together with its item templates.
func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if t.Title == "" || t.OperationType == "" {
		return errors.New("title and operation_type are required")
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.templates.CreateTemplate(ctx, t); err != nil {
			return err
		}
		for i := range t.Items {
			t.Items[i].TemplateID = t.ID
			if t.Items[i].OrderIndex == 0 {
				t.Items[i].OrderIndex = i
			}
			if err := s.templates.CreateItemTemplate(ctx, &t.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTemplate loads a template with its items.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.templates.ListItemTemplates(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return t, nil
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	return s.templates.ListTemplates(ctx, limit, offset)
}

// SetTemplateActive toggles availability for future generation. Existing
// instances keep their snapshot untouched.
func (s *Service) SetTemplateActive(ctx context.Context, id uuid.UUID, active bool) (*Template, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsActive = active
	if err := s.templates.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
