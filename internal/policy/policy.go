// Package policy is the role-to-action permission table.  It answers
// one question: may this role perform this action on this request
// kind?  Deny is the default; every permit is enumerated below, so
// adding a capability means adding a line to the table, never
// loosening a check elsewhere.
package policy

import "github.com/uniaccess/campus-assist/internal/model"

// Kind identifies a request type that flows through the lifecycle
// controller.
type Kind string

const (
	KindRide      Kind = "ride"
	KindSession   Kind = "help_session"
	KindComplaint Kind = "complaint"
	KindLoan      Kind = "gadget_loan"
)

// Action is a permission-checked operation on a request kind.
type Action string

const (
	ActionCreate       Action = "create"
	ActionReadOwn      Action = "read-own"
	ActionReadAssigned Action = "read-assigned"
	ActionTransition   Action = "transition"
)

// permits maps role -> kind -> allowed actions.  Absence means deny.
var permits = map[string]map[Kind][]Action{
	model.RoleStudent: {
		KindRide:      {ActionCreate, ActionReadOwn},
		KindSession:   {ActionCreate, ActionReadOwn},
		KindComplaint: {ActionCreate, ActionReadOwn},
		KindLoan:      {ActionCreate, ActionReadOwn},
	},
	model.RoleHelper: {
		KindSession:   {ActionReadAssigned, ActionTransition},
		KindComplaint: {ActionCreate, ActionReadOwn},
	},
	model.RoleDriver: {
		KindRide:      {ActionReadAssigned, ActionTransition},
		KindComplaint: {ActionCreate, ActionReadOwn},
	},
	model.RoleAdmin: {
		KindRide:      {ActionReadAssigned},
		KindSession:   {ActionReadAssigned},
		KindComplaint: {ActionReadAssigned, ActionTransition},
		KindLoan:      {ActionReadAssigned, ActionTransition},
	},
}

// fulfillers maps each kind to the single role allowed to claim a
// pending request of that kind.
var fulfillers = map[Kind]string{
	KindRide:      model.RoleDriver,
	KindSession:   model.RoleHelper,
	KindComplaint: model.RoleAdmin,
	KindLoan:      model.RoleAdmin,
}

// Allowed reports whether role may perform action on kind.  Unknown
// roles, kinds and actions are all denied.
func Allowed(role string, kind Kind, action Action) bool {
	kinds, ok := permits[role]
	if !ok {
		return false
	}
	for _, a := range kinds[kind] {
		if a == action {
			return true
		}
	}
	return false
}

// FulfillerRole returns the role required to accept a pending request
// of the given kind.  The second return is false for unknown kinds.
func FulfillerRole(kind Kind) (string, bool) {
	r, ok := fulfillers[kind]
	return r, ok
}
