package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "Tulsa, OK")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Tulsa, OK", got.Market)
	assert.Equal(t, model.RunStatusQueued, got.Status)
	assert.Nil(t, got.Report)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "Tulsa, OK")
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)

	// Unknown run surfaces the sentinel.
	err = st.UpdateRunStatus(ctx, "nonexistent", model.RunStatusRunning)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveReport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveReport(context.Background(), "nonexistent", &model.RunReport{Status: model.RunStatusComplete})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveReportMovesRunToTerminalStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "Tulsa, OK")
	require.NoError(t, err)

	report := &model.RunReport{
		RunID:          run.ID,
		Market:         "Tulsa, OK",
		Status:         model.RunStatusComplete,
		CandidatesSeen: 12,
		Rejected:       3,
		Prospects: []*model.Prospect{
			{CompanyName: "Acme", Domain: "acme.dev", ICPScore: 0.8},
		},
		StageReports: []model.StageReport{
			{Stage: "discover", Items: 2, Succeeded: 2, Status: model.OutcomeSuccess},
		},
	}
	require.NoError(t, st.SaveReport(ctx, run.ID, report))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)

	require.NotNil(t, got.Report)
	assert.Equal(t, 12, got.Report.CandidatesSeen)
	assert.Equal(t, 3, got.Report.Rejected)
	require.Len(t, got.Report.Prospects, 1)
	assert.Equal(t, "Acme", got.Report.Prospects[0].CompanyName)
	require.Len(t, got.Report.StageReports, 1)
	assert.Equal(t, "discover", got.Report.StageReports[0].Stage)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "Tulsa, OK")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "Austin, TX")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, r1.ID, model.RunStatusComplete))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byStatus, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, r1.ID, byStatus[0].ID)

	byMarket, err := st.ListRuns(ctx, RunFilter{Market: "Austin, TX"})
	require.NoError(t, err)
	require.Len(t, byMarket, 1)
	assert.Equal(t, "Austin, TX", byMarket[0].Market)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_ListRuns_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
