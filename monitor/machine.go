// Package monitor runs the per-machine accounting loops: it polls counter
// sources, reconciles raw counts into day, shift, and coil totals, writes
// ledger rows at shift and coil boundaries, and keeps the live snapshot
// current.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"cupline/config"
	"cupline/counter"
	"cupline/notify"
	"cupline/plc"
	"cupline/shiftclock"
	"cupline/store"
)

// SnapshotSink receives live snapshot updates. Satisfied by
// livestate.Manager.
type SnapshotSink interface {
	Update(*store.Snapshot) error
	Get(machineName string) (*store.Snapshot, error)
}

const triggerThreshold = 0.5

// consumption codes reported by the controller's coil-status tag.
const (
	coilStatusPartial  = 1
	coilStatusComplete = 2
)

// Machine tracks one production machine's accounting state between poll
// cycles. All fields are owned by the machine's loop goroutine.
type Machine struct {
	cfg      config.MachineConfig
	db       *store.DB
	live     SnapshotSink
	source   plc.Source
	notifier notify.Notifier
	dedup    *notify.Deduplicator
	clock    *shiftclock.Clock
	rec      *counter.Reconciler

	now func() time.Time

	// interval state, valid once the reconciler is seeded
	shift          string
	productionDate string
	shiftStart     time.Time

	// coil identity is captured at open: a lot submitted while the coil is
	// running takes effect at the next rising edge, never retroactively.
	coilID    string
	coilStart time.Time
	coilLot   string
	coilType  string

	triggerHigh     bool
	lotChecks       []lotCheck
	unknownSizeSent bool
	lastFeed        float64
	lastSize        string
}

// lotCheck is a scheduled verification that the operator advanced the lot
// after a coil change.
type lotCheck struct {
	at  time.Time
	lot string
}

func NewMachine(cfg config.MachineConfig, db *store.DB, live SnapshotSink,
	source plc.Source, notifier notify.Notifier, dedup *notify.Deduplicator,
	clock *shiftclock.Clock) *Machine {
	return &Machine{
		cfg:      cfg,
		db:       db,
		live:     live,
		source:   source,
		notifier: notifier,
		dedup:    dedup,
		clock:    clock,
		rec:      counter.NewReconciler(),
		now:      time.Now,
	}
}

func (m *Machine) Name() string { return m.cfg.Name }

func (m *Machine) tags() []string {
	return []string{m.cfg.Tags.Counter, m.cfg.Tags.Feed, m.cfg.Tags.CoilStatus, m.cfg.Tags.CoilTrigger}
}

// cycle runs one accounting pass over a complete tag sample. Boundary
// handling uses the totals computed before any rebaseline, so a shift or
// coil record always carries the delta accumulated up to this instant.
func (m *Machine) cycle(values map[string]float64) error {
	now := m.now()
	raw := values[m.cfg.Tags.Counter]

	totals, err := m.rec.Observe(raw, m.cfg.Multiplier)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", m.cfg.Name, err)
	}

	shift, prodDate := m.clock.At(now)
	if m.shift == "" {
		// First seeded cycle: open the current intervals without writing.
		m.shift, m.productionDate = shift, prodDate
		m.shiftStart = now
		m.openCoil(now)
	}

	if shift != m.shift {
		m.closeShift(totals, raw, now)
		m.shift = shift
		m.shiftStart = now
		totals.Shift = 0
	}
	if prodDate != m.productionDate {
		m.rec.RebaselineDay(raw)
		m.productionDate = prodDate
		totals.Day = 0
	}

	m.lastFeed = values[m.cfg.Tags.Feed]
	m.lastSize = m.classifySize(m.lastFeed)

	high := values[m.cfg.Tags.CoilTrigger] >= triggerThreshold
	if high && !m.triggerHigh {
		m.closeCoil(totals, values, raw, now)
		totals.Coil = 0
		totals.Shift = 0
	}
	m.triggerHigh = high

	m.evaluateLotChecks(now)

	return m.updateSnapshot(totals, true, now)
}

// closeShift writes the ended shift's delta to the ledger. Zero deltas are
// not recorded; idle shifts leave no rows.
func (m *Machine) closeShift(totals counter.Totals, raw float64, now time.Time) {
	defer m.rec.RebaselineShift(raw)
	if totals.Shift <= 0 {
		return
	}
	rec := &store.ProductionRecord{
		Timestamp:      store.FormatTime(now),
		MachineName:    m.cfg.Name,
		CoilNumber:     m.coilLot,
		CupsProduced:   totals.Shift,
		Shift:          m.shift,
		ProductionDate: m.productionDate,
		CounterValue:   int64(raw),
		IntervalStart:  store.FormatTime(m.shiftStart),
		IntervalEnd:    store.FormatTime(now),
	}
	if err := m.db.InsertProductionRecord(rec); err != nil {
		log.Printf("[%s] shift close write: %v", m.cfg.Name, err)
		return
	}
	log.Printf("[%s] shift %s closed: %d cups", m.cfg.Name, m.shift, totals.Shift)
}

// closeCoil handles the rising trigger edge: record the consumed coil under
// the lot it was opened with, flush the in-progress shift delta so the
// rebaseline cannot lose it, open the next coil, and schedule the stale-lot
// check.
func (m *Machine) closeCoil(totals counter.Totals, values map[string]float64, raw float64, now time.Time) {
	consumptionType := "Complete"
	if int(values[m.cfg.Tags.CoilStatus]) == coilStatusPartial {
		consumptionType = "Partial"
	}
	closedLot, closedType := m.coilLot, m.coilType

	cc := &store.CoilConsumption{
		MachineName:      m.cfg.Name,
		CoilID:           m.coilID,
		LotNumber:        closedLot,
		StartTime:        store.FormatTime(m.coilStart),
		EndTime:          store.FormatTime(now),
		ConsumedQuantity: totals.Coil,
		ProductionDate:   m.productionDate,
		Shift:            m.shift,
		ConsumptionType:  consumptionType,
		CoilType:         closedType,
	}
	if err := m.db.InsertCoilConsumption(cc); err != nil {
		log.Printf("[%s] coil close write: %v", m.cfg.Name, err)
	}

	if totals.Shift > 0 {
		rec := &store.ProductionRecord{
			Timestamp:       store.FormatTime(now),
			MachineName:     m.cfg.Name,
			CoilNumber:      closedLot,
			CupsProduced:    totals.Shift,
			ConsumptionType: consumptionType,
			Shift:           m.shift,
			ProductionDate:  m.productionDate,
			CounterValue:    int64(raw),
			IntervalStart:   store.FormatTime(m.shiftStart),
			IntervalEnd:     store.FormatTime(now),
		}
		if err := m.db.InsertProductionRecord(rec); err != nil {
			log.Printf("[%s] coil ledger write: %v", m.cfg.Name, err)
		}
	}

	// A coil boundary is also a shift-accounting boundary: the flushed delta
	// above already holds this production.
	m.rec.RebaselineCoil(raw)
	m.rec.RebaselineShift(raw)
	m.shiftStart = now
	log.Printf("[%s] coil %s closed (%s): %d cups, lot %q", m.cfg.Name, m.coilID, consumptionType, totals.Coil, closedLot)

	// The fresh lot read belongs to the coil being opened.
	m.openCoil(now)
	if m.cfg.LotCheckDelay > 0 {
		m.lotChecks = append(m.lotChecks, lotCheck{at: now.Add(m.cfg.LotCheckDelay.Std()), lot: m.coilLot})
	}

	m.sendReport(&notify.Report{
		Machine:     m.cfg.Name,
		Lot:         m.coilLot,
		OutgoingLot: closedLot,
		CoilStatus:  consumptionType,
		Size:        m.lastSize,
		FeedValue:   m.lastFeed,
		CoilCount:   totals.Coil,
		DailyTotal:  totals.Day,
		Shift:       m.shift,
		UpdatedAt:   store.FormatTime(now),
	})
}

// openCoil starts the next coil interval, binding it to the lot configured at
// this moment.
func (m *Machine) openCoil(now time.Time) {
	m.coilID = uuid.NewString()
	m.coilStart = now
	m.coilLot, m.coilType = "", ""
	lc, err := m.db.GetLotConfig(m.cfg.Name)
	if err != nil {
		log.Printf("[%s] lot config read: %v", m.cfg.Name, err)
		return
	}
	if lc != nil {
		m.coilLot, m.coilType = lc.CurrentLot, lc.CoilType
	}
}

// evaluateLotChecks fires each due stale-lot check independently. Later coil
// changes add their own checks; they never postpone one already pending.
func (m *Machine) evaluateLotChecks(now time.Time) {
	remaining := m.lotChecks[:0]
	for _, check := range m.lotChecks {
		if now.Before(check.at) {
			remaining = append(remaining, check)
			continue
		}
		m.fireLotCheck(check)
	}
	m.lotChecks = remaining
}

func (m *Machine) fireLotCheck(check lotCheck) {
	if check.lot == "" {
		return
	}
	lc, err := m.db.GetLotConfig(m.cfg.Name)
	if err != nil {
		log.Printf("[%s] lot check read: %v", m.cfg.Name, err)
		return
	}
	if lc == nil || lc.CurrentLot != check.lot {
		return
	}
	scheduled := check.at.Add(-m.cfg.LotCheckDelay.Std())
	identity := fmt.Sprintf("stale-lot:%s:%s", m.cfg.Name, check.lot)
	if !m.dedup.ShouldSend(context.Background(), identity) {
		return
	}
	body := notify.FormatStaleLotAlert(m.cfg.Name, check.lot, store.FormatTime(scheduled))
	m.notifier.Notify(fmt.Sprintf("Stale lot on %s", m.cfg.Name), body, true, nil)
	m.dedup.Record(context.Background(), identity)
	log.Printf("[%s] stale lot alert for %q", m.cfg.Name, check.lot)
}

// classifySize maps the feed tag onto a configured cup format. An unmatched
// feed value alerts once and then stays quiet until a known size reappears.
func (m *Machine) classifySize(feed float64) string {
	for name, expected := range m.cfg.CupSizes.Sizes {
		d := feed - expected
		if d < 0 {
			d = -d
		}
		if d <= m.cfg.CupSizes.Tolerance {
			m.unknownSizeSent = false
			return name
		}
	}
	if feed > 0 && len(m.cfg.CupSizes.Sizes) > 0 && !m.unknownSizeSent {
		m.unknownSizeSent = true
		detail := fmt.Sprintf("Feed rate %.4f inch does not match any configured cup format.", feed)
		m.notifier.Notify(fmt.Sprintf("Unknown cup format on %s", m.cfg.Name),
			notify.FormatSourceError(m.cfg.Name, detail), true, nil)
	}
	return ""
}

func (m *Machine) sendReport(r *notify.Report) {
	ctx := context.Background()
	identity := r.Identity()
	if !m.dedup.ShouldSend(ctx, identity) {
		log.Printf("[%s] report suppressed (duplicate within window)", m.cfg.Name)
		return
	}
	subject := fmt.Sprintf("Production report - %s", m.cfg.Name)
	m.notifier.Notify(subject, notify.FormatProductionReport(r), false, nil)
	m.dedup.Record(ctx, identity)
}

func (m *Machine) updateSnapshot(totals counter.Totals, connected bool, now time.Time) error {
	return m.live.Update(&store.Snapshot{
		MachineName: m.cfg.Name,
		CurrentCups: totals.Coil,
		DailyTotal:  totals.Day,
		Shift:       m.shift,
		CoilNumber:  m.coilLot,
		FeedValue:   m.lastFeed,
		Size:        m.lastSize,
		Status:      m.cfg.Status,
		Connected:   connected,
		UpdatedAt:   store.FormatTime(now),
	})
}

// markDisconnected flips only the connection flag on the snapshot, keeping
// the last known totals visible on the dashboard.
func (m *Machine) markDisconnected() {
	s, err := m.live.Get(m.cfg.Name)
	if err != nil || s == nil {
		s = &store.Snapshot{
			MachineName: m.cfg.Name,
			Shift:       m.shift,
			Status:      m.cfg.Status,
		}
	}
	s.Connected = false
	s.UpdatedAt = store.FormatTime(m.now())
	if err := m.live.Update(s); err != nil {
		log.Printf("[%s] disconnect snapshot: %v", m.cfg.Name, err)
	}
}
