package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/pkg/errorutil"
	"oip/dpaccuracy/pkg/logger"
)

// ---- fakes ----

type fakeCheckStore struct {
	mu     sync.Mutex
	checks map[string]*entity.AccuracyCheck
}

func newFakeCheckStore() *fakeCheckStore {
	return &fakeCheckStore{checks: make(map[string]*entity.AccuracyCheck)}
}

func (f *fakeCheckStore) Create(ctx context.Context, check *entity.AccuracyCheck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *check
	f.checks[check.ID] = &cp
	return nil
}

func (f *fakeCheckStore) Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.checks[checkID]
	if !ok {
		return nil, errorutil.ErrCheckNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCheckStore) MarkCompleted(ctx context.Context, checkID string, summary map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.checks[checkID]
	c.Status = entity.CheckStatusCompleted
	c.Summary = summary
	return nil
}

func (f *fakeCheckStore) MarkFailed(ctx context.Context, checkID string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.checks[checkID]
	c.Status = entity.CheckStatusFailed
	c.Error = errMsg
	return nil
}

type fakeDiscStore struct {
	mu       sync.Mutex
	inserted []entity.Discrepancy
}

func (f *fakeDiscStore) BulkInsert(ctx context.Context, discrepancies []entity.Discrepancy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, discrepancies...)
	return nil
}

func (f *fakeDiscStore) all() []entity.Discrepancy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Discrepancy(nil), f.inserted...)
}

type fakeCatalog struct {
	integrations []entity.Integration
	products     []entity.CatalogProduct
	levels       map[string]entity.InventoryLevel
	prices       map[string]entity.PriceRecord
}

func (f *fakeCatalog) GetIntegration(ctx context.Context, id string) (*entity.Integration, error) {
	for i := range f.integrations {
		if f.integrations[i].ID == id {
			return &f.integrations[i], nil
		}
	}
	return nil, fmt.Errorf("integration not found: %s", id)
}

func (f *fakeCatalog) ActiveIntegrations(ctx context.Context, orgID string) ([]entity.Integration, error) {
	return f.integrations, nil
}

func (f *fakeCatalog) SampleProducts(ctx context.Context, orgID string, limit int) ([]entity.CatalogProduct, error) {
	return f.products, nil
}

func (f *fakeCatalog) InventoryLevels(ctx context.Context, orgID string) (map[string]entity.InventoryLevel, error) {
	return f.levels, nil
}

func (f *fakeCatalog) PriceRecords(ctx context.Context, orgID string) (map[string]entity.PriceRecord, error) {
	return f.prices, nil
}

type fakeConnector struct {
	mappings    map[string]connector.ProductMapping
	invStates   []connector.InventoryState
	priceStates []connector.PricingState
	blockCtx    bool // block reads until the scan context is cancelled
}

func (f *fakeConnector) ProductMappings(ctx context.Context, integrationID string) (map[string]connector.ProductMapping, error) {
	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.mappings, nil
}

func (f *fakeConnector) InventoryStates(ctx context.Context, integrationID string) ([]connector.InventoryState, error) {
	return f.invStates, nil
}

func (f *fakeConnector) PricingStates(ctx context.Context, integrationID string) ([]connector.PricingState, error) {
	return f.priceStates, nil
}

func (f *fakeConnector) ReadField(ctx context.Context, integrationID, entityType, entityID, field string) (interface{}, error) {
	return nil, nil
}

func (f *fakeConnector) WriteField(ctx context.Context, integrationID, entityType, entityID, field string, value interface{}) error {
	return nil
}

func (f *fakeConnector) TriggerSync(ctx context.Context, integrationID, entityType, entityID string, opts connector.SyncOptions) (string, error) {
	return "", nil
}

// ---- helpers ----

func newTestScanner(t *testing.T, catalog *fakeCatalog, conn connector.Connector) (*Scanner, *fakeCheckStore, *fakeDiscStore, *events.Bus) {
	t.Helper()

	checks := newFakeCheckStore()
	discs := &fakeDiscStore{}
	registry := connector.NewRegistry()
	if conn != nil {
		registry.Register("shopify", conn)
	}
	bus := events.NewBus(logger.NopLogger{})
	t.Cleanup(bus.Close)

	s := NewScanner(checks, discs, catalog, registry, bus, logger.NopLogger{}, Options{
		SampleSize:      100,
		StalenessWindow: 72 * time.Hour,
	})
	return s, checks, discs, bus
}

func testIntegration() entity.Integration {
	return entity.Integration{ID: "int-1", OrganizationID: "org-1", Provider: "shopify", IsActive: true}
}

// ---- tests ----

func TestRunCheck_RequiresCaller(t *testing.T) {
	s, _, _, _ := newTestScanner(t, &fakeCatalog{}, nil)

	_, err := s.RunCheck(context.Background(), CheckConfig{OrganizationID: "org-1"})
	assert.ErrorIs(t, err, errorutil.ErrNotAuthenticated)
}

func TestRunCheck_RequiresOrganization(t *testing.T) {
	s, _, _, _ := newTestScanner(t, &fakeCatalog{}, nil)

	_, err := s.RunCheck(context.Background(), CheckConfig{CallerID: "user-1"})
	assert.ErrorIs(t, err, errorutil.ErrOrganizationNotSet)
}

func TestRunCheck_StaleInventory(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	catalog := &fakeCatalog{
		integrations: []entity.Integration{testIntegration()},
		levels: map[string]entity.InventoryLevel{
			"p-1": {ProductID: "p-1", Quantity: 40},
		},
	}
	conn := &fakeConnector{
		invStates: []connector.InventoryState{
			// last synced 96h ago, quantity agrees (40 = 30 + 10)
			{ProductID: "p-1", LastSyncedQuantity: 30, PendingDelta: 10, LastSyncedAt: now.Add(-96 * time.Hour)},
		},
	}

	s, checks, discs, _ := newTestScanner(t, catalog, conn)
	s.now = func() time.Time { return now }

	checkID, err := s.RunCheck(context.Background(), CheckConfig{
		CallerID:       "user-1",
		OrganizationID: "org-1",
		Scope:          entity.ScopeInventory,
	})
	require.NoError(t, err)
	s.Wait(checkID)

	check, err := checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCompleted, check.Status)
	assert.Equal(t, 1, check.Summary["total_compared"])
	assert.Equal(t, 1, check.Summary["discrepancies_found"])
	assert.Equal(t, 0.0, check.Summary["accuracy_score"])

	found := discs.all()
	require.Len(t, found, 1)
	d := found[0]
	assert.Equal(t, entity.DiscrepancyStale, d.DiscrepancyType)
	assert.Equal(t, entity.EntityTypeInventory, d.EntityType)
	assert.Equal(t, "quantity", d.FieldName)
	assert.Equal(t, entity.SeverityHigh, d.Severity)
	assert.Equal(t, 1.0, d.Confidence)
	assert.InDelta(t, 96.0, d.Metadata["sync_age_hours"], 1e-9)
}

func TestRunCheck_ProductScope(t *testing.T) {
	catalog := &fakeCatalog{
		integrations: []entity.Integration{testIntegration()},
		products: []entity.CatalogProduct{
			{ID: "p-1", SKU: "SKU-1", Name: "Widget Pro"},
			{ID: "p-2", SKU: "SKU-2", Name: "Gadget"},
			{ID: "p-3", SKU: "SKU-3", Name: "Doohickey"},
		},
	}
	conn := &fakeConnector{
		mappings: map[string]connector.ProductMapping{
			// p-1 missing entirely
			"p-2": {ProductID: "p-2", SKU: "SKU-2-WRONG", Name: "Gadget"},
			"p-3": {ProductID: "p-3", SKU: "SKU-3", Name: "Doohickey X"},
		},
	}

	s, checks, discs, _ := newTestScanner(t, catalog, conn)

	checkID, err := s.RunCheck(context.Background(), CheckConfig{
		CallerID:       "user-1",
		OrganizationID: "org-1",
		Scope:          entity.ScopeProducts,
	})
	require.NoError(t, err)
	s.Wait(checkID)

	check, err := checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCompleted, check.Status)
	assert.Equal(t, 3, check.Summary["total_compared"])

	byField := map[string]entity.Discrepancy{}
	for _, d := range discs.all() {
		byField[d.EntityID+"/"+d.FieldName] = d
	}
	require.Len(t, byField, 3)

	missing := byField["p-1/mapping"]
	assert.Equal(t, entity.DiscrepancyMissing, missing.DiscrepancyType)
	assert.Equal(t, entity.SeverityHigh, missing.Severity)
	assert.Equal(t, 1.0, missing.Confidence)

	sku := byField["p-2/sku"]
	assert.Equal(t, entity.DiscrepancyMismatch, sku.DiscrepancyType)
	assert.Equal(t, entity.SeverityCritical, sku.Severity)
	assert.Equal(t, 1.0, sku.Confidence)

	name := byField["p-3/name"]
	assert.Equal(t, entity.DiscrepancyMismatch, name.DiscrepancyType)
	assert.Equal(t, entity.SeverityMedium, name.Severity)
	sim, ok := name.Metadata["similarity"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 1.0-sim, name.Confidence, 1e-9)
}

func TestAbortCheck(t *testing.T) {
	catalog := &fakeCatalog{integrations: []entity.Integration{testIntegration()}}
	conn := &fakeConnector{blockCtx: true}

	s, checks, _, bus := newTestScanner(t, catalog, conn)
	failed := bus.Subscribe(events.KindCheckFailed, 4)

	checkID, err := s.RunCheck(context.Background(), CheckConfig{
		CallerID:       "user-1",
		OrganizationID: "org-1",
		Scope:          entity.ScopeProducts,
	})
	require.NoError(t, err)

	require.NoError(t, s.AbortCheck(checkID))
	s.Wait(checkID)

	check, err := checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusFailed, check.Status)
	assert.Equal(t, "Check aborted by user", check.Error)

	select {
	case ev := <-failed:
		assert.Equal(t, "Check aborted by user", ev.(events.CheckFailed).Error)
	case <-time.After(time.Second):
		t.Fatal("expected check:failed event")
	}

	// aborting a finished check reports the check as not found
	err = s.AbortCheck(checkID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorutil.ErrCheckNotFound))
}

func TestRunCheck_EventOrder(t *testing.T) {
	catalog := &fakeCatalog{
		integrations: []entity.Integration{
			testIntegration(),
			{ID: "int-2", OrganizationID: "org-1", Provider: "shopify", IsActive: true},
		},
	}
	conn := &fakeConnector{}

	s, _, _, bus := newTestScanner(t, catalog, conn)
	started := bus.Subscribe(events.KindCheckStarted, 4)
	progress := bus.Subscribe(events.KindCheckProgress, 8)
	completed := bus.Subscribe(events.KindCheckCompleted, 4)

	checkID, err := s.RunCheck(context.Background(), CheckConfig{
		CallerID:       "user-1",
		OrganizationID: "org-1",
		Scope:          entity.ScopeProducts,
	})
	require.NoError(t, err)
	s.Wait(checkID)

	require.Len(t, started, 1)
	ev := (<-started).(events.CheckStarted)
	assert.Equal(t, checkID, ev.CheckID)

	require.Len(t, progress, 2, "one progress event per integration")
	first := (<-progress).(events.CheckProgress)
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 2, first.Total)
	second := (<-progress).(events.CheckProgress)
	assert.Equal(t, 2, second.Processed)

	require.Len(t, completed, 1)
	done := (<-completed).(events.CheckCompleted)
	assert.Equal(t, checkID, done.CheckID)
	assert.Equal(t, 100.0, done.AccuracyScore, "nothing compared counts as fully accurate")
}

func TestRunCheck_UnknownProviderToleratedPerIntegration(t *testing.T) {
	catalog := &fakeCatalog{
		integrations: []entity.Integration{
			{ID: "int-x", OrganizationID: "org-1", Provider: "unregistered", IsActive: true},
		},
	}

	s, checks, _, _ := newTestScanner(t, catalog, nil)

	checkID, err := s.RunCheck(context.Background(), CheckConfig{
		CallerID:       "user-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, err)
	s.Wait(checkID)

	// a single broken integration is skipped, the check still completes
	check, err := checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCompleted, check.Status)
	assert.Equal(t, 0, check.Summary["total_compared"])
}
