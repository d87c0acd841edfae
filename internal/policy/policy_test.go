package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uniaccess/campus-assist/internal/model"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name   string
		role   string
		kind   Kind
		action Action
		want   bool
	}{
		{"student creates ride", model.RoleStudent, KindRide, ActionCreate, true},
		{"student reads own loans", model.RoleStudent, KindLoan, ActionReadOwn, true},
		{"student cannot transition rides", model.RoleStudent, KindRide, ActionTransition, false},
		{"driver transitions rides", model.RoleDriver, KindRide, ActionTransition, true},
		{"driver cannot transition sessions", model.RoleDriver, KindSession, ActionTransition, false},
		{"driver cannot create rides", model.RoleDriver, KindRide, ActionCreate, false},
		{"driver files complaints", model.RoleDriver, KindComplaint, ActionCreate, true},
		{"helper transitions sessions", model.RoleHelper, KindSession, ActionTransition, true},
		{"helper cannot touch loans", model.RoleHelper, KindLoan, ActionReadAssigned, false},
		{"admin transitions complaints", model.RoleAdmin, KindComplaint, ActionTransition, true},
		{"admin transitions loans", model.RoleAdmin, KindLoan, ActionTransition, true},
		{"admin cannot transition rides", model.RoleAdmin, KindRide, ActionTransition, false},
		{"admin cannot file complaints", model.RoleAdmin, KindComplaint, ActionCreate, false},
		{"unknown role denied", "JANITOR", KindRide, ActionCreate, false},
		{"unknown kind denied", model.RoleStudent, Kind("unicorn"), ActionCreate, false},
		{"unknown action denied", model.RoleStudent, KindRide, Action("fly"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allowed(tc.role, tc.kind, tc.action))
		})
	}
}

func TestFulfillerRole(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindRide:      model.RoleDriver,
		KindSession:   model.RoleHelper,
		KindComplaint: model.RoleAdmin,
		KindLoan:      model.RoleAdmin,
	} {
		got, ok := FulfillerRole(kind)
		assert.True(t, ok, "kind %s", kind)
		assert.Equal(t, want, got, "kind %s", kind)
	}

	_, ok := FulfillerRole(Kind("unicorn"))
	assert.False(t, ok)
}

// Every kind with a fulfiller must grant that role the transition
// action, or no request of the kind could ever be accepted.
func TestFulfillersCanTransition(t *testing.T) {
	for kind, role := range fulfillers {
		assert.True(t, Allowed(role, kind, ActionTransition),
			"fulfiller %s of %s lacks transition permit", role, kind)
	}
}
