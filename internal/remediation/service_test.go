package remediation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/pkg/logger"
)

// ---- fakes ----

type fakeDiscStore struct {
	mu       sync.Mutex
	discs    map[string]*entity.Discrepancy
	resolved []string
	getErr   error
}

func newFakeDiscStore(discs ...*entity.Discrepancy) *fakeDiscStore {
	f := &fakeDiscStore{discs: make(map[string]*entity.Discrepancy)}
	for _, d := range discs {
		f.discs[d.ID] = d
	}
	return f
}

func (f *fakeDiscStore) Get(ctx context.Context, id string) (*entity.Discrepancy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.discs[id]
	if !ok {
		return nil, fmt.Errorf("discrepancy not found: %s", id)
	}
	return d, nil
}

func (f *fakeDiscStore) GetByIDs(ctx context.Context, ids []string) ([]entity.Discrepancy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []entity.Discrepancy
	for _, id := range ids {
		if d, ok := f.discs[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDiscStore) MarkResolved(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
	return nil
}

type fakeCheckStore struct {
	checks map[string]*entity.AccuracyCheck
}

func (f *fakeCheckStore) Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error) {
	c, ok := f.checks[checkID]
	if !ok {
		return nil, fmt.Errorf("check not found: %s", checkID)
	}
	return c, nil
}

type fakeIntegrationStore struct {
	integrations map[string]*entity.Integration
}

func (f *fakeIntegrationStore) GetIntegration(ctx context.Context, id string) (*entity.Integration, error) {
	integ, ok := f.integrations[id]
	if !ok {
		return nil, fmt.Errorf("integration not found: %s", id)
	}
	return integ, nil
}

type logRecord struct {
	Status string
	ErrMsg string
	Detail map[string]interface{}
}

type fakeLogStore struct {
	mu        sync.Mutex
	created   []*entity.RemediationLog
	finished  map[string]logRecord
	createErr error
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{finished: make(map[string]logRecord)}
}

func (f *fakeLogStore) CreateLog(ctx context.Context, log *entity.RemediationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *log
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeLogStore) UpdateLog(ctx context.Context, logID, status string, result map[string]interface{}, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[logID] = logRecord{Status: status, ErrMsg: errMsg, Detail: result}
	return nil
}

type fakeSyncJobs struct {
	status string
	err    error
}

func (f *fakeSyncJobs) SyncJobStatus(ctx context.Context, jobID string) (string, error) {
	return f.status, f.err
}

type fakeConnector struct {
	fieldValue     interface{}
	dropWrites     bool // WriteField succeeds but the mirror keeps its old value
	writeErr       error
	triggerErr     error
	panicOnTrigger bool
	syncedEntities []string
}

func (f *fakeConnector) ProductMappings(ctx context.Context, integrationID string) (map[string]connector.ProductMapping, error) {
	return nil, nil
}

func (f *fakeConnector) InventoryStates(ctx context.Context, integrationID string) ([]connector.InventoryState, error) {
	return nil, nil
}

func (f *fakeConnector) PricingStates(ctx context.Context, integrationID string) ([]connector.PricingState, error) {
	return nil, nil
}

func (f *fakeConnector) ReadField(ctx context.Context, integrationID, entityType, entityID, field string) (interface{}, error) {
	return f.fieldValue, nil
}

func (f *fakeConnector) WriteField(ctx context.Context, integrationID, entityType, entityID, field string, value interface{}) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if !f.dropWrites {
		f.fieldValue = value
	}
	return nil
}

func (f *fakeConnector) TriggerSync(ctx context.Context, integrationID, entityType, entityID string, opts connector.SyncOptions) (string, error) {
	if f.panicOnTrigger {
		panic("connector exploded")
	}
	if f.triggerErr != nil {
		return "", f.triggerErr
	}
	f.syncedEntities = append(f.syncedEntities, entityID)
	return "job-1", nil
}

type fakeCache struct {
	keys []string
	err  error
}

func (f *fakeCache) Invalidate(ctx context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, keys...)
	return nil
}

// ---- fixtures ----

type testEnv struct {
	svc      *Service
	discs    *fakeDiscStore
	logs     *fakeLogStore
	syncJobs *fakeSyncJobs
	conn     *fakeConnector
	cache    *fakeCache
}

func newTestEnv(t *testing.T, discs ...*entity.Discrepancy) *testEnv {
	t.Helper()

	env := &testEnv{
		discs:    newFakeDiscStore(discs...),
		logs:     newFakeLogStore(),
		syncJobs: &fakeSyncJobs{status: entity.SyncJobRunning},
		conn:     &fakeConnector{},
		cache:    &fakeCache{},
	}

	checks := &fakeCheckStore{checks: map[string]*entity.AccuracyCheck{
		"check-1": {ID: "check-1", OrganizationID: "org-1", IntegrationID: "int-1"},
	}}
	integrations := &fakeIntegrationStore{integrations: map[string]*entity.Integration{
		"int-1": {ID: "int-1", OrganizationID: "org-1", Provider: "shopify"},
	}}
	registry := connector.NewRegistry()
	registry.Register("shopify", env.conn)

	env.svc = NewService(
		env.discs, checks, integrations, env.logs, env.syncJobs,
		registry, env.cache, logger.NopLogger{},
		Options{PollInterval: time.Millisecond, SyncTimeout: 50 * time.Millisecond},
	)
	return env
}

func staleInventory(id string) *entity.Discrepancy {
	return &entity.Discrepancy{
		ID:              id,
		AccuracyCheckID: "check-1",
		OrganizationID:  "org-1",
		IntegrationID:   "int-1",
		EntityType:      entity.EntityTypeInventory,
		EntityID:        "p-1",
		FieldName:       "quantity",
		DiscrepancyType: entity.DiscrepancyStale,
		Status:          entity.DiscrepancyStatusOpen,
	}
}

func priceMismatch(id string, sourcePrice float64) *entity.Discrepancy {
	return &entity.Discrepancy{
		ID:              id,
		AccuracyCheckID: "check-1",
		OrganizationID:  "org-1",
		IntegrationID:   "int-1",
		EntityType:      entity.EntityTypePricing,
		EntityID:        "p-1",
		FieldName:       "price",
		SourceValue:     entity.JSONValue(sourcePrice),
		DiscrepancyType: entity.DiscrepancyMismatch,
		Status:          entity.DiscrepancyStatusOpen,
	}
}

// ---- tests ----

func TestAttemptRemediation_SyncRetrySuccess(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.syncJobs.status = entity.SyncJobCompleted

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.True(t, res.Success)
	assert.Equal(t, entity.ActionSyncRetry, res.Action)
	assert.Equal(t, "job-1", res.Detail["sync_job_id"])
	assert.Equal(t, []string{"p-1"}, env.conn.syncedEntities)
	assert.Equal(t, []string{"d-1"}, env.discs.resolved)

	require.Len(t, env.logs.created, 1)
	log := env.logs.created[0]
	assert.Equal(t, entity.ActionSyncRetry, log.ActionType)
	assert.Equal(t, entity.PriorityHigh, log.Priority)
	assert.Equal(t, entity.RemediationStatusSuccess, env.logs.finished[log.ID].Status)
}

func TestAttemptRemediation_SyncTimeout(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.syncJobs.status = entity.SyncJobRunning // never completes

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
	assert.Empty(t, env.discs.resolved)

	log := env.logs.created[0]
	assert.Equal(t, entity.RemediationStatusFailed, env.logs.finished[log.ID].Status)
}

func TestAttemptRemediation_SyncJobFailed(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.syncJobs.status = entity.SyncJobFailed

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "sync job failed")
}

func TestAttemptRemediation_SyncWaitCancelled(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := env.svc.AttemptRemediation(ctx, d)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
}

func TestAttemptRemediation_ValueUpdateSuccess(t *testing.T) {
	d := priceMismatch("d-1", 19.99)
	env := newTestEnv(t, d)
	env.conn.fieldValue = 24.99 // mirror currently disagrees with the source

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.True(t, res.Success)
	assert.Equal(t, entity.ActionValueUpdate, res.Action)
	assert.Equal(t, "price", res.Detail["field"])
	assert.Equal(t, 24.99, res.Detail["previous_value"])
	assert.Equal(t, 19.99, res.Detail["new_value"])
	assert.Equal(t, 19.99, env.conn.fieldValue)
	assert.Equal(t, []string{"d-1"}, env.discs.resolved)
}

func TestAttemptRemediation_ValueUpdateSafetyRejection(t *testing.T) {
	d := priceMismatch("d-1", -5.0) // negative price never passes validation
	env := newTestEnv(t, d)
	env.conn.fieldValue = 24.99

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Equal(t, "Update failed safety validation", res.Error)
	assert.Equal(t, 24.99, env.conn.fieldValue, "mirror value must be untouched")
	assert.Empty(t, env.discs.resolved)
}

func TestAttemptRemediation_ValueUpdateVerificationFailure(t *testing.T) {
	d := priceMismatch("d-1", 19.99)
	env := newTestEnv(t, d)
	env.conn.fieldValue = 24.99
	env.conn.dropWrites = true

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Equal(t, "Update verification failed", res.Error)
	assert.Empty(t, env.discs.resolved)
}

func TestAttemptRemediation_NoActionAvailable(t *testing.T) {
	d := &entity.Discrepancy{
		ID:              "d-1",
		AccuracyCheckID: "check-1",
		OrganizationID:  "org-1",
		EntityType:      entity.EntityTypeProduct,
		FieldName:       "name",
		DiscrepancyType: entity.DiscrepancyMismatch,
	}
	env := newTestEnv(t, d)

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Equal(t, entity.ActionNone, res.Action)
	assert.Equal(t, "No remediation action available", res.Error)

	// a log row is still written so the decision is auditable
	require.Len(t, env.logs.created, 1)
	log := env.logs.created[0]
	assert.Equal(t, entity.ActionNone, log.ActionType)
	assert.Equal(t, entity.PriorityLow, log.Priority)
	assert.Equal(t, entity.RemediationStatusFailed, env.logs.finished[log.ID].Status)
}

func TestAttemptRemediation_LogCreateFailure(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.logs.createErr = fmt.Errorf("db unavailable")

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Equal(t, "Failed to create remediation log", res.Error)
	assert.Empty(t, env.conn.syncedEntities, "nothing executes without an audit row")
}

func TestAttemptRemediation_PanicRecovered(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.conn.panicOnTrigger = true

	assert.NotPanics(t, func() {
		r := env.svc.AttemptRemediation(context.Background(), d)
		require.False(t, r.Success)
		assert.Equal(t, entity.ActionNone, r.Action)
		assert.Contains(t, r.Error, "remediation panic")
	})
}

func TestAttemptRemediation_OrganizationMismatch(t *testing.T) {
	d := staleInventory("d-1")
	d.OrganizationID = "org-other"
	env := newTestEnv(t, d)

	res := env.svc.AttemptRemediation(context.Background(), d)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "organization mismatch")
}

func TestRemediateByID(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.syncJobs.status = entity.SyncJobCompleted

	res := env.svc.RemediateByID(context.Background(), "d-1")
	assert.True(t, res.Success)

	missing := env.svc.RemediateByID(context.Background(), "no-such-id")
	require.False(t, missing.Success)
	assert.Equal(t, entity.ActionNone, missing.Action)
	assert.Contains(t, missing.Error, "load discrepancy failed")
}

func TestBatchRemediate_TruncatesToLimit(t *testing.T) {
	env := newTestEnv(t)
	env.syncJobs.status = entity.SyncJobCompleted

	ids := make([]string, 150)
	for i := range ids {
		id := fmt.Sprintf("d-%d", i)
		ids[i] = id
		env.discs.discs[id] = staleInventory(id)
	}

	batch := env.svc.BatchRemediate(context.Background(), ids)

	assert.Equal(t, MaxChangesPerRun, batch.Total)
	assert.Equal(t, MaxChangesPerRun, batch.Success)
	assert.Equal(t, 0, batch.Failed)
	assert.Len(t, env.discs.resolved, MaxChangesPerRun)
}

func TestBatchRemediate_MissingIDsCountedFailed(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)
	env.syncJobs.status = entity.SyncJobCompleted

	batch := env.svc.BatchRemediate(context.Background(), []string{"d-1", "ghost-1", "ghost-2"})

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 1, batch.Success)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, batch.Total, batch.Success+batch.Failed)
}

func TestBatchRemediate_LoadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.discs.getErr = fmt.Errorf("db unavailable")

	batch := env.svc.BatchRemediate(context.Background(), []string{"d-1", "d-2"})

	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 0, batch.Success)
	assert.Equal(t, 2, batch.Failed)
}

func TestBatchRemediate_Empty(t *testing.T) {
	env := newTestEnv(t)
	batch := env.svc.BatchRemediate(context.Background(), nil)
	assert.Equal(t, 0, batch.Total)
}

func TestExecuteCacheClear(t *testing.T) {
	d := staleInventory("d-1")
	env := newTestEnv(t, d)

	res := env.svc.executeCacheClear(context.Background(), d)

	require.True(t, res.Success)
	assert.Equal(t, entity.ActionCacheClear, res.Action)
	assert.Equal(t, []string{
		"inventory:p-1",
		"inventory:list:*",
		"accuracy:inventory:*",
	}, env.cache.keys)

	env.cache.err = fmt.Errorf("redis down")
	res = env.svc.executeCacheClear(context.Background(), d)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "cache invalidate failed")
}
