package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/policy"
)

// memStore is an in-memory Store with the same conditional-write
// semantics as the SQL repositories: each mutation checks and applies
// under one lock.
type memStore struct {
	mu   sync.Mutex
	rows map[uint64]*Request
}

func newMemStore(rows ...Request) *memStore {
	m := &memStore{rows: make(map[uint64]*Request)}
	for i := range rows {
		r := rows[i]
		m.rows[r.ID] = &r
	}
	return m
}

func (m *memStore) Get(ctx context.Context, id uint64) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *r, nil
}

func (m *memStore) Claim(ctx context.Context, id, fulfillerID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != StatusPending || r.FulfillerID != nil {
		return false, nil
	}
	fid := fulfillerID
	r.Status = StatusAccepted
	r.FulfillerID = &fid
	return true, nil
}

func (m *memStore) SetStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (m *memStore) SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, fulfillerID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from || r.FulfillerID == nil || *r.FulfillerID != fulfillerID {
		return false, nil
	}
	r.Status = to
	return true, nil
}

var (
	student = Actor{ID: 1, Role: model.RoleStudent}
	driverA = Actor{ID: 10, Role: model.RoleDriver}
	driverB = Actor{ID: 11, Role: model.RoleDriver}
	helper  = Actor{ID: 20, Role: model.RoleHelper}
)

func pendingRide(id uint64) Request {
	return Request{ID: id, RequesterID: student.ID, Status: StatusPending}
}

func TestAcceptClaimsPending(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	got, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
	require.NotNil(t, got.FulfillerID)
	assert.Equal(t, driverA.ID, *got.FulfillerID)
}

func TestAcceptWrongRole(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), helper, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = ctrl.Accept(context.Background(), student, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Untouched.
	cur, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, cur.Status)
}

func TestAcceptMissing(t *testing.T) {
	ctrl := NewController(policy.KindRide, newMemStore(), true)
	_, err := ctrl.Accept(context.Background(), driverA, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptLoserGetsConflict(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	_, err = ctrl.Accept(context.Background(), driverB, 1)
	assert.ErrorIs(t, err, ErrConflict)
}

// A repeat accept by the winner is not a conflict: the request is
// simply no longer pending, and nothing changes.
func TestAcceptRepeatByWinner(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	_, err = ctrl.Accept(context.Background(), driverA, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cur, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, cur.Status)
	assert.Equal(t, driverA.ID, *cur.FulfillerID)
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	const drivers = 32
	var wg sync.WaitGroup
	wins := make(chan uint64, drivers)
	conflicts := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			actor := Actor{ID: 100 + n, Role: model.RoleDriver}
			if _, err := ctrl.Accept(context.Background(), actor, 1); err != nil {
				conflicts <- err
			} else {
				wins <- actor.ID
			}
		}(uint64(i))
	}
	wg.Wait()
	close(wins)
	close(conflicts)

	require.Len(t, wins, 1, "exactly one accept must win")
	winner := <-wins
	for err := range conflicts {
		assert.ErrorIs(t, err, ErrConflict)
	}

	cur, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, cur.Status)
	assert.Equal(t, winner, *cur.FulfillerID)
}

func TestRequesterCancelsOwnPending(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	got, err := ctrl.Reject(context.Background(), student, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestStrangerCannotCancel(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	stranger := Actor{ID: 2, Role: model.RoleStudent}
	_, err := ctrl.Reject(context.Background(), stranger, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFulfillerBacksOutWhenAllowed(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	got, err := ctrl.Reject(context.Background(), driverA, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestBackOutDisabledForOtherKinds(t *testing.T) {
	store := newMemStore(Request{ID: 1, RequesterID: student.ID, Status: StatusPending})
	ctrl := NewController(policy.KindSession, store, false)

	_, err := ctrl.Accept(context.Background(), helper, 1)
	require.NoError(t, err)

	_, err = ctrl.Reject(context.Background(), helper, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOnlyRecordedFulfillerBacksOut(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	_, err = ctrl.Reject(context.Background(), driverB, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cur, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, cur.Status)
}

func TestCompleteRequiresAccepted(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Complete(context.Background(), driverA, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	got, err := ctrl.Complete(context.Background(), driverA, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestCompleteByOtherDriver(t *testing.T) {
	store := newMemStore(pendingRide(1))
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Accept(context.Background(), driverA, 1)
	require.NoError(t, err)

	_, err = ctrl.Complete(context.Background(), driverB, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalStatesStay(t *testing.T) {
	store := newMemStore(Request{ID: 1, RequesterID: student.ID, Status: StatusCompleted})
	ctrl := NewController(policy.KindRide, store, true)

	_, err := ctrl.Reject(context.Background(), student, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ctrl.Accept(context.Background(), driverA, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusAccepted))
	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusAccepted, StatusCompleted))
	assert.True(t, CanTransition(StatusAccepted, StatusRejected))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusRejected, StatusAccepted))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))

	assert.True(t, Terminal(StatusRejected))
	assert.True(t, Terminal(StatusCompleted))
	assert.False(t, Terminal(StatusPending))
	assert.False(t, Terminal(StatusAccepted))
}
