package telemetry

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/content-machine/core/internal/models"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestEstimateCost(t *testing.T) {
	// 1000 input at 0.15/1k, 1000 output at 0.60/1k
	assert.Equal(t, 0.75, EstimateCost(1000, 1000, 0.15, 0.60))
	assert.Equal(t, 0.0, EstimateCost(0, 0, 0.15, 0.60))
	// rounding to 6 decimals
	assert.Equal(t, 0.000225, EstimateCost(1, 1, 0.15, 0.075))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "telemetry.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UsageRecordModel{}))
	return NewService(db)
}

func TestRecordAndSummarize(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Record("run1", "pro", "SCOUT", 100, 200, 0.135, false))
	require.NoError(t, svc.Record("run1", "pro", "DRAFT", 300, 400, 0.285, false))
	require.NoError(t, svc.Record("run1", "degen", "DRAFT", 50, 60, 0.0, true))
	require.NoError(t, svc.Record("other", "pro", "SCOUT", 999, 999, 1.0, false))

	summary, err := svc.Summarize("run1")
	require.NoError(t, err)

	assert.Equal(t, "run1", summary.RunID)
	assert.EqualValues(t, 3, summary.Calls)
	assert.EqualValues(t, 1, summary.CachedCalls)
	assert.EqualValues(t, 450, summary.InputTokens)
	assert.EqualValues(t, 660, summary.OutputTokens)
	assert.Equal(t, 0.42, summary.CostUSD)
}

func TestSummarizeUnknownRun(t *testing.T) {
	svc := newTestService(t)

	summary, err := svc.Summarize("missing")
	require.NoError(t, err)
	assert.EqualValues(t, 0, summary.Calls)
	assert.Equal(t, 0.0, summary.CostUSD)
}
