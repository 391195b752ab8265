package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/octoberhq/concierge/internal/model"
	"github.com/octoberhq/concierge/internal/repository"
)

// pruneRecorder records DeleteOlderThan calls and can fail the first n of them.
type pruneRecorder struct {
	fakeActivity

	cutoffs  []time.Time
	failures int
	deleted  int64
	called   chan struct{}
}

var _ repository.ActivityLogRepository = (*pruneRecorder)(nil)

func (p *pruneRecorder) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.called != nil {
		p.called <- struct{}{}
	}
	if p.failures > 0 {
		p.failures--
		return 0, errors.New("connection refused")
	}
	return p.deleted, nil
}

func TestPruner_Prune_Cutoff(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	clock := clockwork.NewFakeClockAt(now)
	rec := &pruneRecorder{deleted: 5}

	p := NewPruner(rec, 180, clock, zap.NewNop())
	n, err := p.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.Len(t, rec.cutoffs, 1)
	want := now.UTC().AddDate(0, 0, -180)
	assert.Equal(t, want, rec.cutoffs[0], "cutoff is now minus the retention window, in UTC")
}

func TestPruner_Prune_RetriesTransientFailure(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	rec := &pruneRecorder{deleted: 2, failures: 1}

	p := NewPruner(rec, 30, clock, zap.NewNop())
	p.retryBase = time.Millisecond

	start := time.Now()
	n, err := p.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, rec.cutoffs, 2, "one failed attempt plus the retry")
	assert.Less(t, time.Since(start), time.Second, "backoff base is injectable")

	// every attempt computed the same cutoff
	assert.Equal(t, rec.cutoffs[0], rec.cutoffs[1])
}

func TestPruner_Prune_Idempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	activity := &fakeActivity{}
	activity.entries = []model.ActivityEntry{
		{ID: 1, CreatedAt: clock.Now().AddDate(0, 0, -40)},
		{ID: 2, CreatedAt: clock.Now().AddDate(0, 0, -10)},
	}

	p := NewPruner(activity, 30, clock, zap.NewNop())

	n, err := p.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the second run over an unchanged clock deletes nothing
	n, err = p.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, int64(2), activity.entries[0].ID)
}

func TestPruner_Run_PrunesImmediatelyAndStops(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	rec := &pruneRecorder{called: make(chan struct{}, 1)}

	p := NewPruner(rec, 30, clock, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// the first prune happens before any tick
	select {
	case <-rec.called:
	case <-time.After(5 * time.Second):
		t.Fatal("no prune before the first tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
	require.Len(t, rec.cutoffs, 1)
}
