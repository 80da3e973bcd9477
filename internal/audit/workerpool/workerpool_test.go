package workerpool

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsEveryJobAndReportsResults(t *testing.T) {
	p := New(3, nil)
	defer p.Close()

	jobs := make([]Job, 5)
	for i := 0; i < 5; i++ {
		i := i
		jobs[i] = func(ctx context.Context) (any, error) {
			return i * 2, nil
		}
	}

	var got []int
	for r := range p.Submit(context.Background(), jobs) {
		require.NoError(t, r.Err)
		got = append(got, r.Value.(int))
	}

	sort.Ints(got)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, got)
}

func TestSubmitPropagatesJobErrors(t *testing.T) {
	p := New(2, nil)
	defer p.Close()

	boom := errors.New("boom")
	jobs := []Job{
		func(ctx context.Context) (any, error) { return nil, boom },
	}

	var results []Result
	for r := range p.Submit(context.Background(), jobs) {
		results = append(results, r)
	}

	require.Len(t, results, 1)
	assert.Equal(t, boom, results[0].Err)
}

func TestSubmitAfterCloseDropsJobs(t *testing.T) {
	p := New(1, nil)
	p.Close()

	ran := false
	jobs := []Job{
		func(ctx context.Context) (any, error) { ran = true; return nil, nil },
	}

	out := p.Submit(context.Background(), jobs)
	for range out {
		t.Fatal("no results expected once the pool is closed")
	}
	assert.False(t, ran)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(1, nil)
	p.Close()
	assert.NotPanics(t, func() { p.Close() })
}

func TestDefaultSizeIsAtLeastTwo(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultSize(), 2)
}

func TestNewWithNonPositiveSizeUsesDefault(t *testing.T) {
	p := New(0, nil)
	defer p.Close()

	jobs := []Job{func(ctx context.Context) (any, error) { return "ok", nil }}
	r := <-p.Submit(context.Background(), jobs)
	require.NoError(t, r.Err)
	assert.Equal(t, "ok", r.Value)
}

func TestSubmitPropagatesCallerContextToJobs(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "tagged")

	jobs := []Job{
		func(jobCtx context.Context) (any, error) { return jobCtx.Value(key{}), nil },
	}

	r := <-p.Submit(ctx, jobs)
	require.NoError(t, r.Err)
	assert.Equal(t, "tagged", r.Value)
}

func TestSubmitHonorsCallerDeadline(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	jobs := []Job{
		func(jobCtx context.Context) (any, error) {
			<-jobCtx.Done()
			return nil, jobCtx.Err()
		},
	}

	r := <-p.Submit(ctx, jobs)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
}
