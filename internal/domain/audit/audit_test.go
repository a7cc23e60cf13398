package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryWithoutFilters(t *testing.T) {
	query, args := buildQuery("SELECT COUNT(1)", Filter{})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1", query)
	assert.Empty(t, args)
}

func TestBuildQueryNumbersPlaceholdersInOrder(t *testing.T) {
	query, args := buildQuery("SELECT id", Filter{EntityType: EntityPayslip, ActorID: "admin-1"})
	assert.Equal(t, "SELECT id FROM audit_events WHERE 1=1 AND entity_type = $1 AND actor_id = $2", query)
	assert.Equal(t, []any{EntityPayslip, "admin-1"}, args)
}

func TestMarshalOptional(t *testing.T) {
	out, err := marshalOptional(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = marshalOptional(map[string]string{"status": "LOCKED"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"LOCKED"}`, string(out))
}
