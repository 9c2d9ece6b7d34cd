package domaintest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewAccountID returns a random positive account id, so parallel tests don't collide
func NewAccountID(t *testing.T) int {
	t.Helper()

	id, err := uuid.NewRandom()
	require.NoError(t, err)

	// Keep well within the int32 range used upstream
	return int(id.ID()>>2) + 1
}
