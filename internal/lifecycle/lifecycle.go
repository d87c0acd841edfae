// Package lifecycle applies status transitions to service requests.
// Every kind of request (ride, help session, complaint, gadget loan)
// moves along the same directed path:
//
//	PENDING -> ACCEPTED -> COMPLETED
//	PENDING -> REJECTED
//
// REJECTED and COMPLETED are terminal.  Claiming a pending request is
// expressed as a single conditional write at the store boundary
// ("update only if still pending and unclaimed"), never as
// read-then-write, so exactly one of any number of concurrent accepts
// can succeed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/uniaccess/campus-assist/internal/policy"
)

// Request statuses.  Stored verbatim in each kind's status column.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusRejected  = "REJECTED"
	StatusCompleted = "COMPLETED"
)

// Sentinel errors.  Handlers translate these into HTTP responses:
// 403, 404, 409, 409 and 502 respectively.
var (
	// ErrPermissionDenied means the actor's role may not perform the
	// requested transition on this kind.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means no request with the given ID exists.
	ErrNotFound = errors.New("request not found")
	// ErrInvalidTransition means the request is not in the required
	// source state for the transition.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrConflict means the actor lost a race for an exclusive
	// transition: another fulfiller claimed the request first.
	ErrConflict = errors.New("request already claimed")
	// ErrUnavailable wraps store failures.
	ErrUnavailable = errors.New("store unavailable")
)

// transitions lists the allowed next statuses for each status.  The
// ACCEPTED -> REJECTED edge additionally requires the controller's
// rejectAccepted flag and ownership by the recorded fulfiller.
var transitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted, StatusRejected},
}

// CanTransition reports whether to is a valid next status after from.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return len(transitions[status]) == 0
}

// Actor identifies who is performing a transition.  It is passed
// explicitly through every controller call; nothing is read from
// ambient state.
type Actor struct {
	ID   uint64
	Role string
}

// Request is the controller's view of a stored service request.
type Request struct {
	ID          uint64
	RequesterID uint64
	FulfillerID *uint64
	Status      string
}

// Store is the conditional-write boundary to the entity store.  All
// mutating methods report whether a row actually changed; zero rows
// means the predicate no longer held and the controller re-reads to
// classify the failure.  Implementations must make each mutation a
// single atomic statement.
type Store interface {
	// Get returns the current request or ErrNotFound.
	Get(ctx context.Context, id uint64) (Request, error)
	// Claim sets the fulfiller and moves PENDING -> ACCEPTED only if
	// the request is still PENDING with no fulfiller.
	Claim(ctx context.Context, id, fulfillerID uint64) (bool, error)
	// SetStatus moves from -> to unconditionally on actor, used for
	// transitions from PENDING.
	SetStatus(ctx context.Context, id uint64, from, to string) (bool, error)
	// SetStatusByFulfiller moves from -> to only when fulfillerID is
	// the recorded fulfiller.
	SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, fulfillerID uint64) (bool, error)
}

// Controller applies role-gated transitions for one request kind.
type Controller struct {
	kind  policy.Kind
	store Store
	// rejectAccepted lets the recorded fulfiller back out of an
	// accepted request (drivers bailing on a claimed ride).  Other
	// kinds only reject from PENDING.
	rejectAccepted bool
}

// NewController returns a Controller for the given kind backed by store.
func NewController(kind policy.Kind, store Store, rejectAccepted bool) *Controller {
	return &Controller{kind: kind, store: store, rejectAccepted: rejectAccepted}
}

// Kind returns the request kind this controller manages.
func (c *Controller) Kind() policy.Kind { return c.kind }

// Accept claims a pending request for the actor.  Exactly one of any
// set of concurrent Accept calls succeeds; the others observe
// ErrConflict.  A repeat Accept by the winner fails with
// ErrInvalidTransition and applies no side effect.
func (c *Controller) Accept(ctx context.Context, actor Actor, id uint64) (Request, error) {
	if err := c.requireFulfiller(actor); err != nil {
		return Request{}, err
	}
	ok, err := c.store.Claim(ctx, id, actor.ID)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ok {
		return c.get(ctx, id)
	}
	// The conditional write matched nothing; re-read to find out why.
	cur, err := c.get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if cur.Status == StatusAccepted && cur.FulfillerID != nil && *cur.FulfillerID != actor.ID {
		return Request{}, ErrConflict
	}
	return Request{}, ErrInvalidTransition
}

// Reject moves a request to REJECTED.  The requester may cancel their
// own pending request; a fulfiller-role actor may reject a pending
// one; when rejectAccepted is set the recorded fulfiller may also
// back out of an accepted request.
func (c *Controller) Reject(ctx context.Context, actor Actor, id uint64) (Request, error) {
	cur, err := c.get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	switch cur.Status {
	case StatusPending:
		if actor.ID != cur.RequesterID && c.requireFulfiller(actor) != nil {
			return Request{}, ErrPermissionDenied
		}
		ok, err := c.store.SetStatus(ctx, id, StatusPending, StatusRejected)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			// Raced with another transition between read and write.
			return Request{}, ErrInvalidTransition
		}
	case StatusAccepted:
		if !c.rejectAccepted {
			return Request{}, ErrInvalidTransition
		}
		if err := c.requireFulfiller(actor); err != nil {
			return Request{}, err
		}
		ok, err := c.store.SetStatusByFulfiller(ctx, id, StatusAccepted, StatusRejected, actor.ID)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			return Request{}, ErrInvalidTransition
		}
	default:
		return Request{}, ErrInvalidTransition
	}
	return c.get(ctx, id)
}

// Complete moves an accepted request to COMPLETED.  Only the recorded
// fulfiller may complete, and only from ACCEPTED; everything else is
// ErrInvalidTransition.
func (c *Controller) Complete(ctx context.Context, actor Actor, id uint64) (Request, error) {
	if err := c.requireFulfiller(actor); err != nil {
		return Request{}, err
	}
	ok, err := c.store.SetStatusByFulfiller(ctx, id, StatusAccepted, StatusCompleted, actor.ID)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		if _, err := c.get(ctx, id); err != nil {
			return Request{}, err
		}
		return Request{}, ErrInvalidTransition
	}
	return c.get(ctx, id)
}

// requireFulfiller checks that the actor holds the kind's fulfiller
// role and a transition permit.
func (c *Controller) requireFulfiller(actor Actor) error {
	required, ok := policy.FulfillerRole(c.kind)
	if !ok || actor.Role != required {
		return ErrPermissionDenied
	}
	if !policy.Allowed(actor.Role, c.kind, policy.ActionTransition) {
		return ErrPermissionDenied
	}
	return nil
}

func (c *Controller) get(ctx context.Context, id uint64) (Request, error) {
	cur, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return cur, nil
}
