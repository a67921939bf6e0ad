package outcomes

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "outcomes.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndSummary(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.Record("ctx1", "plan::direct", 0.8, "{}", "2026-01-01T00:00:00Z"))
	require.NoError(t, db.Record("ctx1", "plan::direct", 0.4, "{}", "2026-01-01T00:01:00Z"))
	require.NoError(t, db.Record("ctx1", "plan::decompose", 0.9, "{}", "2026-01-01T00:02:00Z"))

	summary, err := db.Summary("ctx1")
	require.NoError(t, err)
	require.Len(t, summary, 2)

	byArm := map[string]ArmSummary{}
	for _, s := range summary {
		byArm[s.ArmKey] = s
	}
	require.Equal(t, 2, byArm["plan::direct"].N)
	require.InDelta(t, 0.6, byArm["plan::direct"].Mean, 1e-9)
}

func TestRecordRichAndArmPerformance(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.RecordRich(RichOutcome{
		ContextKey: "ctx1", ArmKey: "test::rerun_failed", Reward: 1.0, TSUtc: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.RecordRich(RichOutcome{
		ContextKey: "ctx1", ArmKey: "test::rerun_failed", Reward: -1.0, TSUtc: "2026-01-01T00:01:00Z",
	}))

	perf, err := db.ArmPerformanceAll()
	require.NoError(t, err)
	require.Equal(t, 2, perf["test::rerun_failed"].Count)
	require.InDelta(t, 0.0, perf["test::rerun_failed"].Mean, 1e-9)
}

func TestLearningCurve_WindowAndCumulative(t *testing.T) {
	db := tempDB(t)
	rewards := []float64{1, 0, 1, 0, 1}
	for i, r := range rewards {
		require.NoError(t, db.RecordRich(RichOutcome{
			ContextKey: "ctx1", ArmKey: "plan::direct", Reward: r,
			TSUtc: "2026-01-01T00:00:0" + string(rune('0'+i)) + "Z",
		}))
	}
	points, err := db.LearningCurve("plan::direct", "", 2)
	require.NoError(t, err)
	require.Len(t, points, 5)
	require.InDelta(t, 0.5, points[1].WindowMean, 1e-9)
	require.InDelta(t, float64(2)/3, points[2].CumulativeMean, 1e-9)
}

func TestRecentOutcomes_NewestFirst(t *testing.T) {
	db := tempDB(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordRich(RichOutcome{
			ContextKey: "ctx1", ArmKey: "plan::direct", TaskID: "t1",
			Reward: float64(i), TSUtc: "2026-01-01T00:00:00Z",
		}))
	}
	recent, err := db.RecentOutcomes(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, 2.0, recent[0].Reward)
	require.Equal(t, 1.0, recent[1].Reward)
}
