package behavior

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/sirupsen/logrus"
)

// Defaults tuned to mimic a single attentive human operator.
const (
	HourlyCap = 80
	DailyCap  = 500
	Cooldown  = 250 * time.Millisecond

	ReadDelayMin = 2 * time.Second
	ReadDelayMax = 15 * time.Second

	ResponseDelayMin = 1 * time.Second
	ResponseDelayMax = 10 * time.Second

	TypingDurationMin = 1 * time.Second
	TypingDurationMax = 5 * time.Second

	HiccupChance = 0.03
	HiccupMin    = 2 * time.Second
	HiccupMax    = 10 * time.Second

	DedupCapacity = 1000
)

// RejectReason explains why TryAdmit declined.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectHourlyLimit RejectReason = "hourly_limit"
	RejectDailyLimit  RejectReason = "daily_limit"
	RejectCooldown    RejectReason = "cooldown"
)

// Manager owns the process-global rate counters, the dedup set and the
// active-hours window. All mutation goes through its mutex.
type Manager struct {
	clk clock.Clock

	mu            sync.Mutex
	hourlyCount   int
	dailyCount    int
	lastHourReset time.Time
	lastDayReset  time.Time
	lastActionAt  time.Time

	dedup      map[string]struct{}
	dedupOrder []string

	activeDate  string
	activeStart int
	activeEnd   int

	noticeHourMark time.Time
	noticeDayMark  time.Time
}

func NewManager(clk clock.Clock) *Manager {
	now := clk.Now()
	m := &Manager{
		clk:           clk,
		lastHourReset: now,
		lastDayReset:  now,
		dedup:         make(map[string]struct{}, DedupCapacity),
	}
	m.regenerateActiveHours(now)
	return m
}

// TryAdmit is pure accounting: it never sends and never fails. Window
// counters are reset lazily here before the check.
func (m *Manager) TryAdmit(now time.Time) (bool, RejectReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetWindowsLocked(now)

	if m.dailyCount >= DailyCap {
		return false, RejectDailyLimit
	}
	if m.hourlyCount >= HourlyCap {
		return false, RejectHourlyLimit
	}
	if !m.lastActionAt.IsZero() && now.Sub(m.lastActionAt) < Cooldown {
		return false, RejectCooldown
	}
	return true, RejectNone
}

// RecordProcessed counts an action against both windows and remembers the
// message id in the dedup set (FIFO eviction at capacity).
func (m *Manager) RecordProcessed(waMessageID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetWindowsLocked(now)
	m.hourlyCount++
	m.dailyCount++
	m.lastActionAt = now

	if _, seen := m.dedup[waMessageID]; seen {
		return
	}
	m.dedup[waMessageID] = struct{}{}
	m.dedupOrder = append(m.dedupOrder, waMessageID)
	if len(m.dedupOrder) > DedupCapacity {
		oldest := m.dedupOrder[0]
		m.dedupOrder = m.dedupOrder[1:]
		delete(m.dedup, oldest)
	}
}

func (m *Manager) WasProcessed(waMessageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, seen := m.dedup[waMessageID]
	return seen
}

// ShouldNotifyLimit gates the informational "limit reached" group message to
// once per rate window per reason.
func (m *Manager) ShouldNotifyLimit(reason RejectReason, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetWindowsLocked(now)
	switch reason {
	case RejectHourlyLimit:
		if m.noticeHourMark.Equal(m.lastHourReset) {
			return false
		}
		m.noticeHourMark = m.lastHourReset
		return true
	case RejectDailyLimit:
		if m.noticeDayMark.Equal(m.lastDayReset) {
			return false
		}
		m.noticeDayMark = m.lastDayReset
		return true
	}
	return false
}

// ActiveHoursNow reports whether now falls inside today's randomized active
// window. The window is regenerated on calendar-date change.
func (m *Manager) ActiveHoursNow(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeHoursLocked(now)
}

func (m *Manager) ReadDelay(now time.Time) time.Duration {
	return m.scaledDelay(now, ReadDelayMin, ReadDelayMax)
}

func (m *Manager) ResponseDelay(now time.Time) time.Duration {
	return m.scaledDelay(now, ResponseDelayMin, ResponseDelayMax)
}

func (m *Manager) TypingDuration(now time.Time) time.Duration {
	return m.scaledDelay(now, TypingDurationMin, TypingDurationMax)
}

// MaybeNetworkHiccup occasionally stalls to mimic flaky connectivity.
// Returns false only when ctx is cancelled mid-sleep.
func (m *Manager) MaybeNetworkHiccup(ctx context.Context) bool {
	if m.clk.Float64() >= HiccupChance {
		return true
	}
	d := m.clk.Uniform(HiccupMin, HiccupMax)
	logrus.Debugf("[BEHAVIOR] Simulating network hiccup for %v", d)
	return m.clk.Sleep(ctx, d)
}

// Snapshot exposes counters for the status endpoint.
type Snapshot struct {
	HourlyCount   int    `json:"hourly_count"`
	HourlyCap     int    `json:"hourly_cap"`
	DailyCount    int    `json:"daily_count"`
	DailyCap      int    `json:"daily_cap"`
	ActiveStart   int    `json:"active_start"`
	ActiveEnd     int    `json:"active_end"`
	InActiveHours bool   `json:"in_active_hours"`
	LastActionAt  string `json:"last_action_at,omitempty"`
}

func (m *Manager) Snapshot(now time.Time) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetWindowsLocked(now)
	s := Snapshot{
		HourlyCount:   m.hourlyCount,
		HourlyCap:     HourlyCap,
		DailyCount:    m.dailyCount,
		DailyCap:      DailyCap,
		ActiveStart:   m.activeStart,
		ActiveEnd:     m.activeEnd,
		InActiveHours: m.activeHoursLocked(now),
	}
	if !m.lastActionAt.IsZero() {
		s.LastActionAt = m.lastActionAt.UTC().Format(time.RFC3339)
	}
	return s
}

func (m *Manager) resetWindowsLocked(now time.Time) {
	if now.Sub(m.lastHourReset) >= time.Hour {
		m.hourlyCount = 0
		m.lastHourReset = now
	}
	if now.Sub(m.lastDayReset) >= 24*time.Hour {
		m.dailyCount = 0
		m.lastDayReset = now
	}
}

func (m *Manager) activeHoursLocked(now time.Time) bool {
	if key := now.Format("2006-01-02"); key != m.activeDate {
		m.regenerateActiveHours(now)
	}
	h := now.Hour()
	return h >= m.activeStart && h < m.activeEnd
}

func (m *Manager) regenerateActiveHours(now time.Time) {
	jitter := func(base int) int {
		v := base + int(math.Floor(m.clk.Float64()*2.0-1.0))
		if v < 6 {
			v = 6
		}
		if v > 24 {
			v = 24
		}
		return v
	}
	m.activeDate = now.Format("2006-01-02")
	m.activeStart = jitter(7)
	m.activeEnd = jitter(23)
	logrus.Debugf("[BEHAVIOR] Active hours for %s: %02d:00-%02d:00", m.activeDate, m.activeStart, m.activeEnd)
}

func (m *Manager) scaledDelay(now time.Time, min, max time.Duration) time.Duration {
	base := m.clk.Uniform(min, max)

	mult := 1.0
	if !m.ActiveHoursNow(now) {
		mult *= 5
	}
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		mult *= 1.5
	}
	switch h := now.Hour(); {
	case h >= 18:
		mult *= 1.5
	case h >= 10 && h < 14:
		mult *= 1.2
	}

	return time.Duration(float64(base) * mult)
}
