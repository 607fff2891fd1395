package checklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/internal/platform/db"
)

type mockTemplates struct {
	templates map[uuid.UUID]*Template
	items     map[uuid.UUID][]ItemTemplate
}

func newMockTemplates() *mockTemplates {
	return &mockTemplates{
		templates: make(map[uuid.UUID]*Template),
		items:     make(map[uuid.UUID][]ItemTemplate),
	}
}

func (m *mockTemplates) CreateTemplate(_ context.Context, t *Template) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplates) GetTemplate(_ context.Context, id uuid.UUID) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTemplates) ActiveForOperation(_ context.Context, op string) (*Template, error) {
	var best *Template
	for _, t := range m.templates {
		if t.OperationType != op || !t.IsActive {
			continue
		}
		if best == nil || t.Version > best.Version {
			best = t
		}
	}
	if best == nil {
		return nil, ErrTemplateNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockTemplates) ListTemplates(_ context.Context, _, _ int) ([]*Template, int, error) {
	var out []*Template
	for _, t := range m.templates {
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockTemplates) UpdateTemplate(_ context.Context, t *Template) error {
	if _, ok := m.templates[t.ID]; !ok {
		return ErrTemplateNotFound
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplates) CreateItemTemplate(_ context.Context, it *ItemTemplate) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	m.items[it.TemplateID] = append(m.items[it.TemplateID], *it)
	return nil
}

func (m *mockTemplates) ListItemTemplates(_ context.Context, templateID uuid.UUID) ([]ItemTemplate, error) {
	return append([]ItemTemplate(nil), m.items[templateID]...), nil
}

func (m *mockTemplates) GetItemTemplate(_ context.Context, id uuid.UUID) (*ItemTemplate, error) {
	for _, items := range m.items {
		for _, it := range items {
			if it.ID == id {
				cp := it
				return &cp, nil
			}
		}
	}
	return nil, ErrItemNotFound
}

type mockInstances struct {
	instances map[uuid.UUID]*Instance
	items     map[uuid.UUID][]Item
	seq       int
}

func newMockInstances() *mockInstances {
	return &mockInstances{
		instances: make(map[uuid.UUID]*Instance),
		items:     make(map[uuid.UUID][]Item),
	}
}

func (m *mockInstances) CreateInstance(_ context.Context, inst *Instance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	m.seq++
	inst.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *inst
	m.instances[inst.ID] = &cp
	return nil
}

func (m *mockInstances) CreateItems(_ context.Context, items []Item) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		m.items[items[i].InstanceID] = append(m.items[items[i].InstanceID], items[i])
	}
	return nil
}

func (m *mockInstances) GetInstance(_ context.Context, id uuid.UUID) (*Instance, error) {
	inst, ok := m.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *mockInstances) LatestForPatient(_ context.Context, patientID uuid.UUID) (*Instance, error) {
	var latest *Instance
	for _, inst := range m.instances {
		if inst.PatientID != patientID {
			continue
		}
		if latest == nil || inst.CreatedAt.After(latest.CreatedAt) {
			latest = inst
		}
	}
	if latest == nil {
		return nil, ErrInstanceNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockInstances) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*Instance, error) {
	var out []*Instance
	for _, inst := range m.instances {
		if inst.PatientID == patientID {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockInstances) UpdateInstanceStatus(_ context.Context, id uuid.UUID, status InstanceStatus) error {
	inst, ok := m.instances[id]
	if !ok {
		return ErrInstanceNotFound
	}
	inst.Status = status
	return nil
}

func (m *mockInstances) GetItem(_ context.Context, instanceID, itemID uuid.UUID) (*Item, error) {
	for _, it := range m.items[instanceID] {
		if it.ID == itemID {
			cp := it
			return &cp, nil
		}
	}
	return nil, ErrItemNotFound
}

func (m *mockInstances) ListItems(_ context.Context, instanceID uuid.UUID) ([]Item, error) {
	return append([]Item(nil), m.items[instanceID]...), nil
}

func (m *mockInstances) UpdateItem(_ context.Context, it *Item) error {
	items := m.items[it.InstanceID]
	for i := range items {
		if items[i].ID == it.ID {
			items[i] = *it
			return nil
		}
	}
	return ErrItemNotFound
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatients) Update(_ context.Context, p *patient.Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatients) UpdateStatus(_ context.Context, id uuid.UUID, status patient.Status) error {
	p, ok := m.patients[id]
	if !ok {
		return patient.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockPatients) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatients) List(_ context.Context, _ patient.ListFilter) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func (m *mockPatients) CountByStatus(_ context.Context, _ *uuid.UUID) (*patient.Summary, error) {
	return &patient.Summary{ByStatus: map[patient.Status]int{}}, nil
}

type fixture struct {
	svc       *Service
	templates *mockTemplates
	instances *mockInstances
	patients  *mockPatients
	files     *stubFiles
	labs      *stubLabs
	actor     auth.Actor
	orgID     uuid.UUID
}

func newFixture() *fixture {
	templates := newMockTemplates()
	instances := newMockInstances()
	patients := &mockPatients{patients: make(map[uuid.UUID]*patient.Patient)}
	files := &stubFiles{byItem: make(map[uuid.UUID]bool)}
	labs := &stubLabs{byPatient: make(map[uuid.UUID][]Measurement)}
	orgID := uuid.New()
	svc := NewService(templates, instances, NewChecker(files, labs),
		patient.NewService(patients), db.PassthroughRunner())
	return &fixture{
		svc:       svc,
		templates: templates,
		instances: instances,
		patients:  patients,
		files:     files,
		labs:      labs,
		actor:     auth.Actor{ID: uuid.New(), Role: auth.RoleFeldsher, OrganizationID: &orgID},
		orgID:     orgID,
	}
}

func (f *fixture) seedPatient(t *testing.T, status patient.Status) *patient.Patient {
	t.Helper()
	op := "cataract_phaco"
	p := &patient.Patient{
		ID:             uuid.New(),
		OrganizationID: &f.orgID,
		FullName:       "Sidorov Pavel",
		OperationType:  &op,
		Status:         status,
	}
	if err := f.patients.Create(context.Background(), p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return p
}

func (f *fixture) seedTemplate(t *testing.T, items ...ItemTemplate) *Template {
	t.Helper()
	tmpl := &Template{Title: "Cataract preop", OperationType: "cataract_phaco", Version: 1, IsActive: true, Items: items}
	if err := f.svc.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tmpl
}

func plainItems(n int) []ItemTemplate {
	out := make([]ItemTemplate, n)
	for i := range out {
		out[i] = ItemTemplate{Title: "step", OrderIndex: i}
	}
	return out
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one item per template item", func(t *testing.T) {
		f := newFixture()
		p := f.seedPatient(t, patient.StatusNew)
		f.seedTemplate(t, plainItems(3)...)

		inst, err := f.svc.Generate(ctx, f.actor, p.ID, nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(inst.Items) != 3 {
			t.Fatalf("want 3 items, got %d", len(inst.Items))
		}
		for _, it := range inst.Items {
			if it.Done {
				t.Fatal("fresh items must not be done")
			}
		}
		got, _ := f.patients.GetByID(ctx, p.ID)
		if got.Status != patient.StatusInPreparation {
			t.Fatalf("generation should move NEW to IN_PREPARATION, got %s", got.Status)
		}
	})

	t.Run("explicit template must be active", func(t *testing.T) {
		f := newFixture()
		p := f.seedPatient(t, patient.StatusNew)
		tmpl := f.seedTemplate(t, plainItems(2)...)
		if _, err := f.svc.SetTemplateActive(ctx, tmpl.ID, false); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if _, err := f.svc.Generate(ctx, f.actor, p.ID, &tmpl.ID); !errors.Is(err, ErrTemplateInactive) {
			t.Fatalf("want ErrTemplateInactive, got %v", err)
		}
	})

	t.Run("no operation type", func(t *testing.T) {
		f := newFixture()
		p := f.seedPatient(t, patient.StatusNew)
		p.OperationType = nil
		_ = f.patients.Update(ctx, p)
		f.seedTemplate(t, plainItems(2)...)
		if _, err := f.svc.Generate(ctx, f.actor, p.ID, nil); !errors.Is(err, ErrNoOperationType) {
			t.Fatalf("want ErrNoOperationType, got %v", err)
		}
	})

	t.Run("empty template", func(t *testing.T) {
		f := newFixture()
		p := f.seedPatient(t, patient.StatusNew)
		f.seedTemplate(t)
		if _, err := f.svc.Generate(ctx, f.actor, p.ID, nil); !errors.Is(err, ErrEmptyTemplate) {
			t.Fatalf("want ErrEmptyTemplate, got %v", err)
		}
	})

	t.Run("highest active version wins", func(t *testing.T) {
		f := newFixture()
		p := f.seedPatient(t, patient.StatusNew)
		f.seedTemplate(t, plainItems(1)...)
		v2 := &Template{Title: "Cataract preop", OperationType: "cataract_phaco", Version: 2, IsActive: true, Items: plainItems(4)}
		if err := f.svc.CreateTemplate(ctx, v2); err != nil {
			t.Fatalf("create v2: %v", err)
		}
		inst, err := f.svc.Generate(ctx, f.actor, p.ID, nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if inst.TemplateID != v2.ID {
			t.Fatal("expected the v2 template to be picked")
		}
	})

	t.Run("scope denied for other organization", func(t *testing.T) {
		f := newFixture()
		otherOrg := uuid.New()
		p := f.seedPatient(t, patient.StatusNew)
		outsider := auth.Actor{ID: uuid.New(), Role: auth.RoleFeldsher, OrganizationID: &otherOrg}
		if _, err := f.svc.Generate(ctx, outsider, p.ID, nil); !errors.Is(err, patient.ErrScopeDenied) {
			t.Fatalf("want ErrScopeDenied, got %v", err)
		}
	})
}

func boolptr(b bool) *bool { return &b }

func TestUpdateItemLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.seedPatient(t, patient.StatusNew)
	f.seedTemplate(t, plainItems(3)...)
	inst, err := f.svc.Generate(ctx, f.actor, p.ID, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 0 of 3
	prog, err := f.svc.ProgressFor(ctx, f.actor, inst.ID)
	if err != nil || prog.Percent != 0 {
		t.Fatalf("want 0%%, got %+v err %v", prog, err)
	}

	// 1 of 3 -> 33
	item, prog, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[0].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !item.Done || item.DoneAt == nil {
		t.Fatal("done_at must be set on the false to true transition")
	}
	if prog.Percent != 33 {
		t.Fatalf("want 33, got %d", prog.Percent)
	}

	// 2 of 3 -> 67
	_, prog, err = f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[1].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if prog.Percent != 67 {
		t.Fatalf("want 67, got %d", prog.Percent)
	}

	// 3 of 3 -> 100, instance COMPLETED, patient READY_FOR_REVIEW
	_, prog, err = f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[2].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if prog.Percent != 100 {
		t.Fatalf("want 100, got %d", prog.Percent)
	}
	got, _ := f.instances.GetInstance(ctx, inst.ID)
	if got.Status != InstanceCompleted {
		t.Fatalf("instance should be COMPLETED, got %s", got.Status)
	}
	gotP, _ := f.patients.GetByID(ctx, p.ID)
	if gotP.Status != patient.StatusReadyForReview {
		t.Fatalf("patient should be READY_FOR_REVIEW, got %s", gotP.Status)
	}

	// Unmark one: done_at cleared, instance back to IN_PROGRESS.
	item, _, err = f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[0].ID, ItemPatch{Done: boolptr(false)})
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if item.Done || item.DoneAt != nil {
		t.Fatal("done_at must be cleared on the way back")
	}
	got, _ = f.instances.GetInstance(ctx, inst.ID)
	if got.Status != InstanceInProgress {
		t.Fatalf("instance should revert to IN_PROGRESS, got %s", got.Status)
	}
}

func TestUpdateItemMetadataOnlyKeepsDoneAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.seedPatient(t, patient.StatusNew)
	f.seedTemplate(t, plainItems(2)...)
	inst, _ := f.svc.Generate(ctx, f.actor, p.ID, nil)

	item, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[0].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	was := *item.DoneAt

	item, _, err = f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[0].ID, ItemPatch{Note: strptr("checked twice")})
	if err != nil {
		t.Fatalf("note edit: %v", err)
	}
	if item.DoneAt == nil || !item.DoneAt.Equal(was) {
		t.Fatal("metadata edits must not touch done_at")
	}
}

func TestUpdateItemPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.seedPatient(t, patient.StatusNew)
	kind := EvidenceBloodLabs
	f.seedTemplate(t,
		ItemTemplate{Title: "attach scan", RequiresFile: true},
		ItemTemplate{Title: "blood labs", EvidenceKind: &kind},
	)
	inst, err := f.svc.Generate(ctx, f.actor, p.ID, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	fileItem, labItem := inst.Items[0], inst.Items[1]

	if _, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, fileItem.ID, ItemPatch{Done: boolptr(true)}); !errors.Is(err, ErrFileRequired) {
		t.Fatalf("want ErrFileRequired, got %v", err)
	}
	// The failed attempt must not mutate the item.
	got, _ := f.instances.GetItem(ctx, inst.ID, fileItem.ID)
	if got.Done {
		t.Fatal("rejected completion must not stick")
	}

	f.files.byItem[fileItem.ID] = true
	if _, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, fileItem.ID, ItemPatch{Done: boolptr(true)}); err != nil {
		t.Fatalf("after attach: %v", err)
	}

	if _, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, labItem.ID, ItemPatch{Done: boolptr(true)}); !errors.Is(err, ErrEvidenceMissing) {
		t.Fatalf("want ErrEvidenceMissing, got %v", err)
	}
	f.labs.byPatient[p.ID] = []Measurement{{Name: "glucose", Value: 5.1, Unit: "mmol/L"}}
	if _, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, labItem.ID, ItemPatch{Done: boolptr(true)}); err != nil {
		t.Fatalf("after panel: %v", err)
	}
}

func TestApprovedPatientStaysApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.seedPatient(t, patient.StatusNew)
	f.seedTemplate(t, plainItems(2)...)
	inst, _ := f.svc.Generate(ctx, f.actor, p.ID, nil)

	// Surgeon approves out of band.
	_ = f.patients.UpdateStatus(ctx, p.ID, patient.StatusApproved)

	_, _, err := f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[0].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_, _, err = f.svc.UpdateItem(ctx, f.actor, inst.ID, inst.Items[1].ID, ItemPatch{Done: boolptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	gotP, _ := f.patients.GetByID(ctx, p.ID)
	if gotP.Status != patient.StatusApproved {
		t.Fatalf("approved patient moved to %s", gotP.Status)
	}
	// The instance flag still tracks completion.
	got, _ := f.instances.GetInstance(ctx, inst.ID)
	if got.Status != InstanceCompleted {
		t.Fatalf("instance should be COMPLETED, got %s", got.Status)
	}
}

func TestLatestForPatientPicksNewest(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.seedPatient(t, patient.StatusNew)
	f.seedTemplate(t, plainItems(1)...)

	first, _ := f.svc.Generate(ctx, f.actor, p.ID, nil)
	second, _ := f.svc.Generate(ctx, f.actor, p.ID, nil)

	latest, err := f.svc.LatestForPatient(ctx, f.actor, p.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatal("latest must be the most recently created instance")
	}

	ok, err := f.svc.ItemBelongsToLatest(ctx, p.ID, second.Items[0].ID)
	if err != nil || !ok {
		t.Fatalf("item of newest instance should belong: %v %v", ok, err)
	}
	ok, err = f.svc.ItemBelongsToLatest(ctx, p.ID, first.Items[0].ID)
	if err != nil || ok {
		t.Fatalf("item of older instance should not belong: %v %v", ok, err)
	}
}
