package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderInProgress, OrderCompleted, true},
		{OrderInProgress, OrderCancelled, true},
		{OrderCompleted, OrderServed, true},
		{OrderInProgress, OrderServed, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderServed, OrderCompleted, false},
		{OrderCancelled, OrderInProgress, false},
		{OrderServed, OrderServed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPermissionMapScan(t *testing.T) {
	var m PermissionMap
	assert.NoError(t, m.Scan([]byte(`{"branch_edit":true,"menu_view":false}`)))
	assert.True(t, m["branch_edit"])
	assert.False(t, m["menu_view"])

	assert.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))

	v, err := PermissionMap(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, "{}", v)
}
