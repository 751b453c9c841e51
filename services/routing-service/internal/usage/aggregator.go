// Package usage meters purchased labels per shipper, carrier and month.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultBuffer     = 10000
	defaultMaxRetries = 3
)

// Event is one purchased label.
type Event struct {
	ShipperSeqNum int64
	Carrier       carrier.ID
	At            time.Time
}

// Aggregator counts label events in memory and flushes the deltas to a
// store.UsageStore on a fixed interval. Counts survive failed flushes.
type Aggregator struct {
	mu     sync.Mutex
	counts map[store.UsageKey]int64

	// sendMu orders Record against Stop: no event enters the channel
	// once closed is set, so the workers' drain sees every accepted event.
	sendMu sync.RWMutex
	closed bool
	events chan Event
	quit   chan struct{}
	wg     sync.WaitGroup

	store         store.UsageStore
	flushInterval time.Duration
	retryBackoff  time.Duration
	log           logrus.FieldLogger
}

func NewAggregator(s store.UsageStore, flushInterval time.Duration, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		counts:        make(map[store.UsageKey]int64),
		events:        make(chan Event, defaultBuffer),
		quit:          make(chan struct{}),
		store:         s,
		flushInterval: flushInterval,
		retryBackoff:  time.Second,
		log:           log,
	}
}

// Start launches the workers and the periodic flusher.
func (a *Aggregator) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	a.wg.Add(1)
	go a.flusher(ctx)
	a.log.WithFields(logrus.Fields{
		"workers":        workers,
		"flush_interval": a.flushInterval.String(),
	}).Info("usage aggregator started")
}

// Record queues a label without blocking and reports whether it was accepted.
// A full buffer or a stopped aggregator drops the event with a log line.
func (a *Aggregator) Record(shipperSeqNum int64, c carrier.ID, at time.Time) bool {
	a.sendMu.RLock()
	defer a.sendMu.RUnlock()
	if a.closed {
		a.dropped(shipperSeqNum, c).Warn("usage aggregator stopped, label not metered")
		return false
	}
	select {
	case a.events <- Event{ShipperSeqNum: shipperSeqNum, Carrier: c, At: at}:
		return true
	default:
		a.dropped(shipperSeqNum, c).Error("usage buffer full, label not metered")
		return false
	}
}

func (a *Aggregator) dropped(shipperSeqNum int64, c carrier.ID) logrus.FieldLogger {
	return a.log.WithFields(logrus.Fields{
		"shipper_seq_num": shipperSeqNum,
		"carrier":         c.String(),
	})
}

func (a *Aggregator) worker() {
	defer a.wg.Done()
	for {
		select {
		case ev := <-a.events:
			a.add(ev)
		case <-a.quit:
			// drain what is already buffered
			for {
				select {
				case ev := <-a.events:
					a.add(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *Aggregator) add(ev Event) {
	at := ev.At.UTC()
	k := store.UsageKey{
		ShipperSeqNum: ev.ShipperSeqNum,
		Carrier:       ev.Carrier,
		Year:          at.Year(),
		Month:         int(at.Month()),
	}
	// under the lock so Flush never swaps the map mid-update
	a.mu.Lock()
	a.counts[k]++
	a.mu.Unlock()
}

func (a *Aggregator) flusher(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.WithError(err).Error("usage flush failed")
			}
		case <-a.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop drains buffered events and performs a final flush.
func (a *Aggregator) Stop(ctx context.Context) error {
	a.sendMu.Lock()
	if !a.closed {
		a.closed = true
		close(a.quit)
	}
	a.sendMu.Unlock()
	a.wg.Wait()
	if err := a.Flush(ctx); err != nil {
		return fmt.Errorf("final usage flush: %w", err)
	}
	a.log.Info("usage aggregator stopped")
	return nil
}

// Flush swaps out the current counts and persists them as one batch.
// On failure the counts are merged back so the next flush retries them.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.counts) == 0 {
		a.mu.Unlock()
		return nil
	}
	pending := a.counts
	a.counts = make(map[store.UsageKey]int64)
	a.mu.Unlock()

	batch := store.UsageBatch{
		BatchID: uuid.New(),
		Records: make([]store.UsageRecord, 0, len(pending)),
	}
	for k, n := range pending {
		batch.Records = append(batch.Records, store.UsageRecord{UsageKey: k, Labels: n})
	}

	var err error
retry:
	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		if err = a.store.FlushUsage(ctx, batch); err == nil {
			a.log.WithFields(logrus.Fields{
				"batch_id": batch.BatchID.String(),
				"records":  len(batch.Records),
			}).Debug("usage flushed")
			return nil
		}
		a.log.WithError(err).WithField("attempt", attempt).Warn("usage flush attempt failed")
		if attempt == defaultMaxRetries {
			break
		}
		select {
		case <-time.After(a.retryBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			break retry
		}
	}

	a.mu.Lock()
	for k, n := range pending {
		a.counts[k] += n
	}
	a.mu.Unlock()
	return fmt.Errorf("failed to flush usage: %w", err)
}
