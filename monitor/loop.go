package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"cupline/notify"
)

// faultAlertAfter is how many consecutive failed cycles to tolerate before
// alerting; short broker hiccups stay off the error list.
const faultAlertAfter = 5

// run is the machine's poll loop. It samples all tags together each interval,
// backs off exponentially while the source is down, and returns when ctx is
// cancelled.
func (m *Machine) run(ctx context.Context) {
	interval := m.cfg.Connection.ReadInterval.Std()
	retryWait := m.cfg.Connection.RetryDelay.Std()
	failures := 0

	log.Printf("[%s] poll loop started, interval %s", m.cfg.Name, interval)
	for {
		values, err := m.readTags(ctx)
		if err == nil {
			failures = 0
			retryWait = m.cfg.Connection.RetryDelay.Std()
			m.safeCycle(values)
			if !sleep(ctx, interval) {
				return
			}
			continue
		}

		if ctx.Err() != nil {
			return
		}
		failures++
		log.Printf("[%s] read failed (%d consecutive): %v", m.cfg.Name, failures, err)
		m.markDisconnected()
		if failures == faultAlertAfter {
			m.alertSourceFault(err)
		}

		if !sleep(ctx, retryWait) {
			return
		}
		retryWait *= 2
		if max := m.cfg.Connection.MaxRetryWait.Std(); retryWait > max {
			retryWait = max
		}
	}
}

// safeCycle keeps a panic in one machine's accounting from taking down the
// other loops.
func (m *Machine) safeCycle(values map[string]float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] cycle panic: %v", m.cfg.Name, r)
		}
	}()
	if err := m.cycle(values); err != nil {
		log.Printf("[%s] cycle: %v", m.cfg.Name, err)
	}
}

func (m *Machine) readTags(ctx context.Context) (map[string]float64, error) {
	readCtx, cancel := context.WithTimeout(ctx, m.cfg.Connection.ReadTimeout.Std())
	defer cancel()
	return m.source.ReadAll(readCtx, m.tags())
}

func (m *Machine) alertSourceFault(err error) {
	identity := fmt.Sprintf("source-fault:%s", m.cfg.Name)
	ctx := context.Background()
	if !m.dedup.ShouldSend(ctx, identity) {
		return
	}
	detail := fmt.Sprintf("Counter source unreachable for %d consecutive cycles: %v", faultAlertAfter, err)
	m.notifier.Notify(fmt.Sprintf("Counter source fault on %s", m.cfg.Name),
		notify.FormatSourceError(m.cfg.Name, detail), true, nil)
	m.dedup.Record(ctx, identity)
}

// sleep waits d or until ctx is done, reporting whether the loop should keep
// running.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
