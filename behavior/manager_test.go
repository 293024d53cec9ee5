package behavior

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestManager(t *testing.T) (*Manager, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) // a Monday
	return NewManager(clk), clk
}

func TestTryAdmitCooldown(t *testing.T) {
	m, clk := newTestManager(t)

	ok, reason := m.TryAdmit(clk.Now())
	require.True(t, ok)
	assert.Equal(t, RejectNone, reason)

	m.RecordProcessed("msg1", clk.Now())

	ok, reason = m.TryAdmit(clk.Now())
	assert.False(t, ok)
	assert.Equal(t, RejectCooldown, reason)

	clk.Advance(300 * time.Millisecond)
	ok, _ = m.TryAdmit(clk.Now())
	assert.True(t, ok)
}

func TestHourlyLimitResetsAfterOneHour(t *testing.T) {
	m, clk := newTestManager(t)

	for i := 0; i < HourlyCap; i++ {
		m.RecordProcessed("msg", clk.Now())
		clk.Advance(time.Second)
	}

	ok, reason := m.TryAdmit(clk.Now())
	require.False(t, ok)
	assert.Equal(t, RejectHourlyLimit, reason)

	clk.Advance(time.Hour)
	ok, _ = m.TryAdmit(clk.Now())
	assert.True(t, ok)
}

func TestDailyLimitBeatsHourly(t *testing.T) {
	m, clk := newTestManager(t)

	// 500 actions spread over ~4 hours so the hourly window keeps resetting.
	for i := 0; i < DailyCap; i++ {
		m.RecordProcessed("msg", clk.Now())
		clk.Advance(30 * time.Second)
	}

	ok, reason := m.TryAdmit(clk.Now())
	require.False(t, ok)
	assert.Equal(t, RejectDailyLimit, reason)
}

func TestDedupSetEvictsFIFO(t *testing.T) {
	m, clk := newTestManager(t)

	for i := 0; i < DedupCapacity+1; i++ {
		m.RecordProcessed(fmt.Sprintf("msg-%d", i), clk.Now())
		clk.Advance(time.Second)
	}

	assert.False(t, m.WasProcessed("msg-0"), "oldest entry should be evicted")
	assert.True(t, m.WasProcessed(fmt.Sprintf("msg-%d", DedupCapacity)))
}

func TestWasProcessedDedup(t *testing.T) {
	m, clk := newTestManager(t)

	assert.False(t, m.WasProcessed("m1"))
	m.RecordProcessed("m1", clk.Now())
	assert.True(t, m.WasProcessed("m1"))
}

func TestActiveHoursBoundary(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	clk.SetFloat64(0.5) // jitter floor(0) => window exactly 07:00-23:00
	m := NewManager(clk)

	lastActive := time.Date(2026, 3, 2, 22, 59, 59, 999000000, time.UTC)
	assert.True(t, m.ActiveHoursNow(lastActive))

	atEnd := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	assert.False(t, m.ActiveHoursNow(atEnd))

	beforeStart := time.Date(2026, 3, 2, 6, 59, 0, 0, time.UTC)
	assert.False(t, m.ActiveHoursNow(beforeStart))
}

func TestDelaysScaleOutsideActiveHours(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	clk.SetFloat64(0.5)
	m := NewManager(clk)

	// Monday 09:00 is inside the window, Monday 03:00 is not.
	daytime := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	nighttime := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	day := m.ReadDelay(daytime)
	night := m.ReadDelay(nighttime)
	assert.Equal(t, ReadDelayMin, day)
	assert.Equal(t, 5*ReadDelayMin, night)
}

func TestDelayWeekendAndEveningMultipliers(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	clk.SetFloat64(0.5)
	m := NewManager(clk)

	// Saturday 19:00: active hours, weekend 1.5x, evening 1.5x.
	saturdayEvening := time.Date(2026, 3, 7, 19, 0, 0, 0, time.UTC)
	got := m.ResponseDelay(saturdayEvening)
	want := time.Duration(float64(ResponseDelayMin) * 1.5 * 1.5)
	assert.Equal(t, want, got)
}

func TestNetworkHiccup(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	m := NewManager(clk)

	clk.SetFloat64(0.5)
	require.True(t, m.MaybeNetworkHiccup(context.Background()))
	assert.Empty(t, clk.Slept())

	clk.SetFloat64(0.01)
	require.True(t, m.MaybeNetworkHiccup(context.Background()))
	slept := clk.Slept()
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], HiccupMin)
	assert.LessOrEqual(t, slept[0], HiccupMax)
}

func TestLimitNoticeOncePerWindow(t *testing.T) {
	m, clk := newTestManager(t)

	for i := 0; i < HourlyCap; i++ {
		m.RecordProcessed("msg", clk.Now())
		clk.Advance(time.Second)
	}

	assert.True(t, m.ShouldNotifyLimit(RejectHourlyLimit, clk.Now()))
	assert.False(t, m.ShouldNotifyLimit(RejectHourlyLimit, clk.Now()))

	clk.Advance(time.Hour)
	m.RecordProcessed("msg", clk.Now()) // new window, one action
	for i := 1; i < HourlyCap; i++ {
		clk.Advance(time.Second)
		m.RecordProcessed("msg", clk.Now())
	}
	clk.Advance(time.Second)
	assert.True(t, m.ShouldNotifyLimit(RejectHourlyLimit, clk.Now()))
}

// Property: within any single hour window the number of admitted actions
// never exceeds the hourly cap, no matter how calls interleave.
func TestAdmissionCapProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
		clk.SetFloat64(0.5)
		m := NewManager(clk)

		admitted := 0
		steps := rapid.IntRange(1, 600).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			gap := time.Duration(rapid.IntRange(250, 5000).Draw(t, "gapMs")) * time.Millisecond
			clk.Advance(gap)
			if clk.Now().Sub(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) >= time.Hour {
				break
			}
			if ok, _ := m.TryAdmit(clk.Now()); ok {
				m.RecordProcessed("msg", clk.Now())
				admitted++
			}
		}
		if admitted > HourlyCap {
			t.Fatalf("admitted %d actions in one hour, cap is %d", admitted, HourlyCap)
		}
	})
}
