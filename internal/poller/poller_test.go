package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/queue"
)

type fakeRides struct {
	pending []model.RideRequest
	err     error
}

func (f *fakeRides) ListPending(context.Context) ([]model.RideRequest, error) {
	return f.pending, f.err
}

type fakeSessions struct{ calls int }

func (f *fakeSessions) ExpireCodes(context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

type fakeLocations struct {
	calls   int
	lastAge int
}

func (f *fakeLocations) PruneOlderThan(_ context.Context, minutes int) (int64, error) {
	f.calls++
	f.lastAge = minutes
	return 1, nil
}

func pendingRide(id uint64) model.RideRequest {
	return model.RideRequest{
		ID:          id,
		RideNumber:  "r-test",
		StudentID:   3,
		Status:      "PENDING",
		Pickup:      "library",
		Destination: "dorm B",
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestPoller(rides *fakeRides) (*Poller, *[]queue.RideRequestedEvent) {
	p := New(rides, &fakeSessions{}, &fakeLocations{}, 1, 1, 5)
	published := &[]queue.RideRequestedEvent{}
	p.publish = func(_ context.Context, ev queue.RideRequestedEvent) error {
		*published = append(*published, ev)
		return nil
	}
	return p, published
}

func TestDispatchTickPublishesEachRideOnce(t *testing.T) {
	rides := &fakeRides{pending: []model.RideRequest{pendingRide(1), pendingRide(2)}}
	p, published := newTestPoller(rides)

	p.dispatchTick(context.Background())
	require.Len(t, *published, 2)
	assert.Equal(t, uint64(1), (*published)[0].RideID)
	assert.Equal(t, uint64(2), (*published)[1].RideID)

	// Rides still pending on the next tick are not re-announced.
	p.dispatchTick(context.Background())
	assert.Len(t, *published, 2)
}

func TestDispatchTickAnnouncesNewArrivals(t *testing.T) {
	rides := &fakeRides{pending: []model.RideRequest{pendingRide(1)}}
	p, published := newTestPoller(rides)

	p.dispatchTick(context.Background())
	require.Len(t, *published, 1)

	rides.pending = append(rides.pending, pendingRide(2))
	p.dispatchTick(context.Background())
	require.Len(t, *published, 2)
	assert.Equal(t, uint64(2), (*published)[1].RideID)
}

func TestDispatchTickRetriesFailedPublish(t *testing.T) {
	rides := &fakeRides{pending: []model.RideRequest{pendingRide(9)}}
	p, _ := newTestPoller(rides)

	var attempts int
	fail := true
	p.publish = func(context.Context, queue.RideRequestedEvent) error {
		attempts++
		if fail {
			return errors.New("broker down")
		}
		return nil
	}

	p.dispatchTick(context.Background())
	p.dispatchTick(context.Background())
	assert.Equal(t, 2, attempts, "failed publish must be retried")

	fail = false
	p.dispatchTick(context.Background())
	p.dispatchTick(context.Background())
	assert.Equal(t, 3, attempts, "successful publish must not repeat")
}

func TestDispatchTickForgetsDepartedRides(t *testing.T) {
	rides := &fakeRides{pending: []model.RideRequest{pendingRide(1)}}
	p, published := newTestPoller(rides)

	p.dispatchTick(context.Background())
	require.Len(t, *published, 1)
	assert.Contains(t, p.seen, uint64(1))

	// The ride got accepted and left the pending set.
	rides.pending = nil
	p.dispatchTick(context.Background())
	assert.NotContains(t, p.seen, uint64(1))

	// If the same ID ever shows up pending again it is announced again.
	rides.pending = []model.RideRequest{pendingRide(1)}
	p.dispatchTick(context.Background())
	assert.Len(t, *published, 2)
}

func TestDispatchTickSkipsOnListError(t *testing.T) {
	rides := &fakeRides{err: errors.New("db down")}
	p, published := newTestPoller(rides)

	p.dispatchTick(context.Background())
	assert.Empty(t, *published)
	assert.Empty(t, p.seen)
}

func TestLocationTickUsesConfiguredAge(t *testing.T) {
	locations := &fakeLocations{}
	p := New(&fakeRides{}, &fakeSessions{}, locations, 1, 1, 7)

	p.locationTick(context.Background())
	assert.Equal(t, 1, locations.calls)
	assert.Equal(t, 7, locations.lastAge)
}

func TestLoopStopsOnCancel(t *testing.T) {
	sessions := &fakeSessions{}
	p := New(&fakeRides{}, sessions, &fakeLocations{}, 1, 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.loop(ctx, 10*time.Millisecond, p.codeTick)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after context cancel")
	}
	assert.Greater(t, sessions.calls, 0)
}
