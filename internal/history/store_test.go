package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-warmup-automation/internal/runner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(runID string, started time.Time) runner.Snapshot {
	return runner.Snapshot{
		RunID:  runID,
		Status: runner.StatusCompleted,
		Queue: []runner.QueueItem{
			{ProfileID: "p1", ProfileName: "Main", Round: 1, Status: runner.QueueCompleted},
			{ProfileID: "p2", ProfileName: "Backup", Round: 1, Status: runner.QueueFailed},
		},
		Completed: 1,
		Failed:    1,
		Results: []runner.StepResult{
			{ProfileID: "p1", ProfileName: "Main", Round: 1, Step: "verify_login",
				Outcome: runner.OutcomeSuccess, Timestamp: started.Add(time.Second)},
			{ProfileID: "p2", ProfileName: "Backup", Round: 1, Step: "like_post",
				Outcome: runner.OutcomeFailure, Detail: "button not found",
				Screenshot: "warmupss/like_failed.png", Timestamp: started.Add(2 * time.Second)},
		},
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	started := time.Now().Truncate(time.Millisecond)

	require.NoError(t, s.SaveRun(sampleSnapshot("run-1", started)))
	require.NoError(t, s.SaveRun(sampleSnapshot("run-2", started.Add(time.Hour))))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	rec := runs[1]
	assert.Equal(t, string(runner.StatusCompleted), rec.Status)
	assert.Equal(t, 2, rec.Tasks)
	assert.Equal(t, 1, rec.Completed)
	assert.Equal(t, 1, rec.Failed)
	assert.True(t, rec.StartedAt.Equal(started))
}

func TestRunResultsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	started := time.Now().Truncate(time.Millisecond)
	require.NoError(t, s.SaveRun(sampleSnapshot("run-1", started)))

	results, err := s.RunResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "verify_login", results[0].Step)
	assert.Equal(t, runner.OutcomeSuccess, results[0].Outcome)
	assert.Equal(t, "like_post", results[1].Step)
	assert.Equal(t, runner.OutcomeFailure, results[1].Outcome)
	assert.Equal(t, "button not found", results[1].Detail)
	assert.Equal(t, "warmupss/like_failed.png", results[1].Screenshot)
}

func TestSaveRunIsIdempotentPerRunID(t *testing.T) {
	s := openTestStore(t)
	started := time.Now()

	snap := sampleSnapshot("run-1", started)
	require.NoError(t, s.SaveRun(snap))
	snap.Status = runner.StatusStopped
	require.NoError(t, s.SaveRun(snap))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "re-saving the same run must replace, not duplicate")
	assert.Equal(t, string(runner.StatusStopped), runs[0].Status)
}

func TestListRunsLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		snap := sampleSnapshot("run", base.Add(time.Duration(i)*time.Minute))
		snap.RunID = snap.RunID + string(rune('a'+i))
		require.NoError(t, s.SaveRun(snap))
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestUnknownRunHasNoResults(t *testing.T) {
	s := openTestStore(t)
	results, err := s.RunResults("nope")
	require.NoError(t, err)
	assert.Empty(t, results)
}
