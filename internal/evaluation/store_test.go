package evaluation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, created time.Time) *Run {
	return &Run{
		ID:             id,
		CreatedAt:      created,
		Decoder:        "centroid",
		Geometry:       smallGeometry,
		Notes:          "baseline",
		Precision:      0.75,
		MeanPixelError: 5.5,
		Samples: []RunSample{
			{ImageName: "a.png", Truth: geometry.GridPoint{X: 8, Y: 8}, Predicted: geometry.GridPoint{X: 9, Y: 8}, DX: 1, PixelError: 6.25},
			{ImageName: "b.png", Truth: geometry.GridPoint{X: 3, Y: 4}, Predicted: geometry.GridPoint{X: 3, Y: 6}, DY: 2, PixelError: 10},
		},
		Skipped: []Skipped{{ImageName: "broken.png", Reason: "failed to open image"}},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleRun("run-1", time.Unix(1700000000, 123).UTC())
	require.NoError(t, s.SaveRun(ctx, want))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_SaveAssignsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("", time.Time{})
	require.NoError(t, s.SaveRun(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	_, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)

	// duplicate IDs roll back without leaving partial rows
	err = s.SaveRun(ctx, run)
	assert.Error(t, err)
	list, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_ListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)
	assert.Equal(t, 2, all[0].SampleCount)
	assert.Equal(t, 1, all[0].SkippedCount)
	assert.Equal(t, "baseline", all[0].Notes)

	top, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "mid", top[1].ID)
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	require.NoError(t, s.SaveRun(ctx, sampleRun("doomed", time.Unix(1, 0).UTC())))
	require.NoError(t, s.DeleteRun(ctx, "doomed"))
	_, err = s.GetRun(ctx, "doomed")
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM eval_samples`).Scan(&n))
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, s.DeleteRun(ctx, "doomed"), ErrRunNotFound)
}
