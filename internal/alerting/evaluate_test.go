package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"oip/dpaccuracy/internal/entity"
)

func TestEvaluateAlertRules_AccuracyBelowThreshold(t *testing.T) {
	m, alerts, _, _ := newTestManager(testRule())

	created := m.EvaluateAlertRules(context.Background(), "check-1", 90.0, nil)

	require.Len(t, created, 1)
	alert, err := alerts.GetAlert(context.Background(), created[0])
	require.NoError(t, err)
	assert.Equal(t, entity.TriggeredByAccuracyScore, alert.TriggeredBy)
	assert.Equal(t, 90.0, alert.TriggerValue)
	reason, _ := alert.Metadata["trigger_reason"].(string)
	assert.Contains(t, reason, "below threshold")
}

func TestEvaluateAlertRules_CountAboveThreshold(t *testing.T) {
	m, alerts, _, _ := newTestManager(testRule())

	// accuracy is fine, count 11 strictly exceeds threshold 10
	discs := make([]entity.Discrepancy, 11)
	for i := range discs {
		discs[i] = entity.Discrepancy{ID: "d", EntityType: entity.EntityTypeInventory, Severity: entity.SeverityLow}
	}
	created := m.EvaluateAlertRules(context.Background(), "check-1", 99.0, discs)

	require.Len(t, created, 1)
	alert, err := alerts.GetAlert(context.Background(), created[0])
	require.NoError(t, err)
	assert.Equal(t, entity.TriggeredByDiscrepancyCount, alert.TriggeredBy)
	assert.Equal(t, 11.0, alert.TriggerValue)
}

func TestEvaluateAlertRules_CountAtThresholdDoesNotTrigger(t *testing.T) {
	m, _, _, _ := newTestManager(testRule())

	discs := make([]entity.Discrepancy, 10)
	for i := range discs {
		discs[i] = entity.Discrepancy{Severity: entity.SeverityLow}
	}
	created := m.EvaluateAlertRules(context.Background(), "check-1", 99.0, discs)

	assert.Empty(t, created)
}

func TestEvaluateAlertRules_SeverityThreshold(t *testing.T) {
	m, alerts, _, _ := newTestManager(testRule())

	discs := []entity.Discrepancy{
		{ID: "d-low", Severity: entity.SeverityHigh},
		{ID: "d-crit", Severity: entity.SeverityCritical},
	}
	created := m.EvaluateAlertRules(context.Background(), "check-1", 99.0, discs)

	require.Len(t, created, 1)
	alert, err := alerts.GetAlert(context.Background(), created[0])
	require.NoError(t, err)
	assert.Equal(t, entity.TriggeredBySeverity, alert.TriggeredBy)
	reason, _ := alert.Metadata["trigger_reason"].(string)
	assert.Contains(t, reason, "d-crit")
}

func TestEvaluateAlertRules_AccuracyTakesPrecedence(t *testing.T) {
	m, alerts, _, _ := newTestManager(testRule())

	// both the accuracy and the count condition hold, accuracy wins
	discs := make([]entity.Discrepancy, 30)
	for i := range discs {
		discs[i] = entity.Discrepancy{Severity: entity.SeverityLow}
	}
	created := m.EvaluateAlertRules(context.Background(), "check-1", 80.0, discs)

	require.Len(t, created, 1)
	alert, err := alerts.GetAlert(context.Background(), created[0])
	require.NoError(t, err)
	assert.Equal(t, entity.TriggeredByAccuracyScore, alert.TriggeredBy)
}

func TestEvaluateAlertRules_SuppressionWindow(t *testing.T) {
	m, _, _, _ := newTestManager(testRule())

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(m, base)

	created := m.EvaluateAlertRules(context.Background(), "check-1", 50.0, nil)
	require.Len(t, created, 1)

	// 30 minutes later, still inside the 3600s window
	fixedNow(m, base.Add(30*time.Minute))
	created = m.EvaluateAlertRules(context.Background(), "check-1", 50.0, nil)
	assert.Empty(t, created)

	// past the window the rule fires again
	fixedNow(m, base.Add(2*time.Hour))
	created = m.EvaluateAlertRules(context.Background(), "check-1", 50.0, nil)
	assert.Len(t, created, 1)
}

func TestEvaluateAlertRules_UnknownCheck(t *testing.T) {
	m, _, _, _ := newTestManager(testRule())

	created := m.EvaluateAlertRules(context.Background(), "no-such-check", 50.0, nil)
	assert.Empty(t, created, "lookup failures map to an empty result, never an error")
}

func TestEvaluateAlertRules_InactiveRuleIgnored(t *testing.T) {
	rule := testRule()
	rule.IsActive = false
	m, _, _, _ := newTestManager(rule)

	created := m.EvaluateAlertRules(context.Background(), "check-1", 50.0, nil)
	assert.Empty(t, created)
}

func TestFilterByEntityTypes(t *testing.T) {
	discs := []entity.Discrepancy{
		{ID: "d-1", EntityType: entity.EntityTypeInventory},
		{ID: "d-2", EntityType: entity.EntityTypePricing},
	}

	all := &entity.AlertRule{}
	assert.Len(t, filterByEntityTypes(discs, all), 2, "no filter configured matches everything")

	pricing := &entity.AlertRule{EntityTypes: datatypes.JSONSlice[string]{entity.EntityTypePricing}}
	filtered := filterByEntityTypes(discs, pricing)
	require.Len(t, filtered, 1)
	assert.Equal(t, "d-2", filtered[0].ID)
}
