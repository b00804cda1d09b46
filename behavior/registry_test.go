package behavior

import (
	"errors"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/framecore/testutil"
)

// TestStartRunsOnceBeforeUpdate covers the start-before-update contract.
func TestStartRunsOnceBeforeUpdate(t *testing.T) {
	r := NewRegistry()
	c, err := Register(r, &testutil.Counter{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Starts())
	assert.Equal(t, 0, c.Updates())

	for i := 0; i < 5; i++ {
		require.NoError(t, r.UpdateAll())
	}
	assert.Equal(t, 1, c.Starts())
	assert.False(t, c.UpdatedBeforeStart())
}

// TestUpdateCount checks N passes give exactly N updates.
func TestUpdateCount(t *testing.T) {
	for _, n := range []int{0, 1, 3, 100} {
		r := NewRegistry()
		c, err := Register(r, &testutil.Counter{})
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.NoError(t, r.UpdateAll())
		}
		assert.Equal(t, n, c.Counter, "after %d passes", n)
	}
}

// TestCounterScenario: start state {counter:0}, Start leaves it, three passes.
func TestCounterScenario(t *testing.T) {
	r := NewRegistry()
	c, err := Register(r, &testutil.Counter{Counter: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Counter)

	require.NoError(t, r.UpdateAll())
	require.NoError(t, r.UpdateAll())
	require.NoError(t, r.UpdateAll())
	assert.Equal(t, 3, c.Counter)
}

func TestUpdateOrder(t *testing.T) {
	trace := &testutil.Trace{}
	r := NewRegistry()
	_, err := Register(r, &testutil.Recorder{Name: "b1", Trace: trace})
	require.NoError(t, err)
	_, err = Register(r, &testutil.Recorder{Name: "b2", Trace: trace})
	require.NoError(t, err)

	require.NoError(t, r.UpdateAll())
	require.NoError(t, r.UpdateAll())

	want := []string{"b1.start", "b2.start", "b1.update", "b2.update", "b1.update", "b2.update"}
	if diff := cmp.Diff(want, trace.Calls()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterReturnsCallerHandle(t *testing.T) {
	r := NewRegistry()
	in := &testutil.Counter{}
	out, err := Register(r, in)
	require.NoError(t, err)
	assert.Same(t, in, out)

	require.NoError(t, r.UpdateAll())
	assert.Equal(t, 1, out.Counter, "handle observes registry updates")
}

func TestLatest(t *testing.T) {
	r := NewRegistry()

	_, err := Latest[*testutil.Counter](r)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.True(t, errdefs.IsNotFound(err))

	c, err := Register(r, &testutil.Counter{})
	require.NoError(t, err)
	got, err := Latest[*testutil.Counter](r)
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = Register(r, &testutil.Recorder{Trace: &testutil.Trace{}})
	require.NoError(t, err)
	_, err = Latest[*testutil.Counter](r)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.True(t, errdefs.IsFailedPrecondition(err))
	assert.Contains(t, err.Error(), "*testutil.Recorder")
}

func TestRegisterNil(t *testing.T) {
	r := NewRegistry()
	var c *testutil.Counter
	_, err := Register(r, c)
	assert.ErrorIs(t, err, ErrNil)
	assert.NoError(t, r.UpdateAll())
	assert.Equal(t, 0, r.Len())
}

func TestStartPanicIsNotRegistered(t *testing.T) {
	var faults []*Fault
	r := NewRegistry(WithHooks(Hooks{Fault: func(f *Fault) { faults = append(faults, f) }}))

	_, err := Register(r, &testutil.Panicker{PanicOnStart: true, Value: "bad start"})
	require.Error(t, err)

	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, PhaseStart, f.Phase)
	assert.Equal(t, -1, f.Index)
	assert.Equal(t, "bad start", f.Value)
	assert.True(t, errdefs.IsInternal(err))
	assert.Equal(t, 0, r.Len())
	assert.Len(t, faults, 1)
}

func TestContinuePolicyIsolatesFaults(t *testing.T) {
	trace := &testutil.Trace{}
	r := NewRegistry(WithPolicy(FaultContinue))
	_, err := Register(r, &testutil.Recorder{Name: "a", Trace: trace})
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = Register(r, &testutil.Panicker{Value: boom})
	require.NoError(t, err)
	_, err = Register(r, &testutil.Recorder{Name: "c", Trace: trace})
	require.NoError(t, err)

	err = r.UpdateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, PhaseUpdate, f.Phase)
	assert.Equal(t, "*testutil.Panicker", f.Type)
	assert.NotEmpty(t, f.Stack)

	want := []string{"a.start", "c.start", "a.update", "c.update"}
	if diff := cmp.Diff(want, trace.Calls()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestAbortPolicyStopsPass(t *testing.T) {
	trace := &testutil.Trace{}
	r := NewRegistry(WithPolicy(FaultAbort))
	_, err := Register(r, &testutil.Panicker{PanicAfter: 1})
	require.NoError(t, err)
	_, err = Register(r, &testutil.Recorder{Name: "b", Trace: trace})
	require.NoError(t, err)

	require.NoError(t, r.UpdateAll())
	err = r.UpdateAll()
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 0, f.Index)

	want := []string{"b.start", "b.update"}
	assert.Equal(t, want, trace.Calls())
}

func TestRegisteredHookAndLen(t *testing.T) {
	var totals []int
	r := NewRegistry(WithHooks(Hooks{Registered: func(n int) { totals = append(totals, n) }}))
	for i := 0; i < 3; i++ {
		_, err := Register(r, &testutil.Counter{})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, totals)
	assert.Equal(t, 3, r.Len())
}

func TestRegisterDuringUpdateJoinsNextPass(t *testing.T) {
	r := NewRegistry()
	late := &testutil.Counter{}
	added := false
	_, err := Register(r, testutil.Func{OnUpdate: func() {
		if !added {
			added = true
			_, err := Register(r, late)
			require.NoError(t, err)
		}
	}})
	require.NoError(t, err)

	require.NoError(t, r.UpdateAll())
	assert.Equal(t, 1, late.Starts())
	assert.Equal(t, 0, late.Updates())

	require.NoError(t, r.UpdateAll())
	assert.Equal(t, 1, late.Updates())
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Register(r, &testutil.Counter{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
	assert.NoError(t, r.UpdateAll())
}

func TestFaultPolicyString(t *testing.T) {
	assert.Equal(t, "continue", FaultContinue.String())
	assert.Equal(t, "abort", FaultAbort.String())
	assert.Equal(t, "FaultPolicy(7)", FaultPolicy(7).String())
}

func BenchmarkUpdateAll(b *testing.B) {
	r := NewRegistry()
	for i := 0; i < 64; i++ {
		_, _ = Register(r, &testutil.Counter{})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.UpdateAll()
	}
}
