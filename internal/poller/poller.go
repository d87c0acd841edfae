// Package poller runs the background jobs that keep dispatch state
// fresh: watching for newly requested rides, pruning stale driver
// locations, and expiring unused verification codes. All jobs are
// ticker loops that stop when the server's root context is cancelled;
// a failed tick is logged and retried on the next one.
package poller

import (
	"context"
	"log"
	"time"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/queue"
	queuepub "github.com/uniaccess/campus-assist/internal/service"
)

const tickTimeout = 10 * time.Second

// RideSource lists pending ride requests for the dispatch watcher.
type RideSource interface {
	ListPending(ctx context.Context) ([]model.RideRequest, error)
}

// LocationPruner removes driver fixes older than the given age.
type LocationPruner interface {
	PruneOlderThan(ctx context.Context, minutes int) (int64, error)
}

// CodeExpirer clears verification codes past their validity window.
type CodeExpirer interface {
	ExpireCodes(ctx context.Context) (int64, error)
}

// Poller owns the background jobs. Construct with New and call Start
// once; jobs share the passed context for teardown.
type Poller struct {
	rides     RideSource
	sessions  CodeExpirer
	locations LocationPruner

	dispatchEvery  time.Duration
	locationEvery  time.Duration
	locationMaxAge int // minutes

	publish func(ctx context.Context, ev queue.RideRequestedEvent) error

	// seen tracks pending ride IDs already announced, so each ride is
	// published once even though the watcher re-reads the full set.
	seen map[uint64]struct{}
}

// New wires a Poller. dispatchSec and sweepSec are intervals in
// seconds; locationTTLMin is the stale-fix age in minutes.
func New(rides RideSource, sessions CodeExpirer, locations LocationPruner, dispatchSec, sweepSec, locationTTLMin int) *Poller {
	return &Poller{
		rides:          rides,
		sessions:       sessions,
		locations:      locations,
		dispatchEvery:  time.Duration(dispatchSec) * time.Second,
		locationEvery:  time.Duration(sweepSec) * time.Second,
		locationMaxAge: locationTTLMin,
		publish:        queuepub.PublishRideRequested,
		seen:           make(map[uint64]struct{}),
	}
}

// Start launches the three job loops. It returns immediately; the
// goroutines exit when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx, p.dispatchEvery, p.dispatchTick)
	go p.loop(ctx, p.locationEvery, p.locationTick)
	go p.loop(ctx, time.Minute, p.codeTick)
}

func (p *Poller) loop(ctx context.Context, every time.Duration, tick func(ctx context.Context)) {
	if every <= 0 {
		every = 5 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
			tick(tickCtx)
			cancel()
		}
	}
}

// dispatchTick reads the pending set, publishes an event for each ride
// not announced before, and forgets rides that left the pending set.
func (p *Poller) dispatchTick(ctx context.Context) {
	pending, err := p.rides.ListPending(ctx)
	if err != nil {
		log.Printf("dispatch watcher: list pending failed: %v", err)
		return
	}

	current := make(map[uint64]struct{}, len(pending))
	for _, ride := range pending {
		current[ride.ID] = struct{}{}
		if _, ok := p.seen[ride.ID]; ok {
			continue
		}
		ev := queue.RideRequestedEvent{
			RideID:      ride.ID,
			RideNumber:  ride.RideNumber,
			StudentID:   ride.StudentID,
			Pickup:      ride.Pickup,
			Destination: ride.Destination,
			RequestedAt: ride.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := p.publish(ctx, ev); err != nil {
			// Not marked seen, so the next tick retries.
			log.Printf("dispatch watcher: publish ride %d failed: %v", ride.ID, err)
			continue
		}
		p.seen[ride.ID] = struct{}{}
	}

	for id := range p.seen {
		if _, ok := current[id]; !ok {
			delete(p.seen, id)
		}
	}
}

func (p *Poller) locationTick(ctx context.Context) {
	n, err := p.locations.PruneOlderThan(ctx, p.locationMaxAge)
	if err != nil {
		log.Printf("location sweeper: prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("location sweeper: pruned %d stale fixes", n)
	}
}

func (p *Poller) codeTick(ctx context.Context) {
	n, err := p.sessions.ExpireCodes(ctx)
	if err != nil {
		log.Printf("code sweeper: expire failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("code sweeper: cleared %d expired codes", n)
	}
}
