package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oip/dpaccuracy/internal/entity"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, -1.5, Mean([]float64{-1, -2}))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{5, 5, 5}))
	// {2,4,4,4,5,5,7,9}: classic example with variance 4
	assert.InDelta(t, 4.0, Variance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{42}), "a single point has no spread")
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestZScoreToConfidence(t *testing.T) {
	assert.Equal(t, 0.99, ZScoreToConfidence(3.0))
	assert.Equal(t, 0.99, ZScoreToConfidence(-3.0), "sign must not matter")
	assert.Equal(t, 0.95, ZScoreToConfidence(2.5))
	assert.Equal(t, 0.90, ZScoreToConfidence(2.0))
	assert.Equal(t, 0.80, ZScoreToConfidence(1.5))
	assert.Equal(t, 0.70, ZScoreToConfidence(1.49))
	assert.Equal(t, 0.70, ZScoreToConfidence(0))
}

func TestSeverityScore(t *testing.T) {
	assert.Equal(t, 0.0, SeverityScore(nil))

	discrepancies := []entity.Discrepancy{
		{Severity: entity.SeverityCritical},
		{Severity: entity.SeverityHigh},
		{Severity: entity.SeverityMedium},
		{Severity: entity.SeverityLow},
	}
	// (1.0 + 0.7 + 0.4 + 0.1) / 4
	assert.InDelta(t, 0.55, SeverityScore(discrepancies), 1e-9)

	assert.Equal(t, 1.0, SeverityScore([]entity.Discrepancy{{Severity: entity.SeverityCritical}}))
}
