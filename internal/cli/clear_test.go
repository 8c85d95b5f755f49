package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/activity"
)

func seededClearStore(t *testing.T) *activity.Store {
	t.Helper()
	store, _ := newTestStore(t)
	seedEntries(t, store,
		entry{id: 1, url: "https://example.com/a", ts: 1000},
		entry{id: 2, url: "https://example.com/b", ts: 2000},
	)
	return store
}

func remaining(t *testing.T, store *activity.Store) int {
	t.Helper()
	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func TestClear_RequiresAllFlag(t *testing.T) {
	store := seededClearStore(t)
	cmd := &ClearCommand{globals: &GlobalFlags{}}

	err := cmd.executeWithStore(context.Background(), store)
	assert.ErrorContains(t, err, "--all")
	assert.Equal(t, 2, remaining(t, store))
}

func TestClear_Force(t *testing.T) {
	store := seededClearStore(t)
	cmd := &ClearCommand{globals: &GlobalFlags{}, All: true, Force: true}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, "Cleared all entries")
	assert.Zero(t, remaining(t, store))
}

func TestClear_ConfirmationAccepted(t *testing.T) {
	store := seededClearStore(t)
	cmd := &ClearCommand{globals: &GlobalFlags{}, All: true, stdin: strings.NewReader("CLEAR\n")}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, `Type "CLEAR" to confirm`)
	assert.Zero(t, remaining(t, store))
}

func TestClear_ConfirmationRejected(t *testing.T) {
	store := seededClearStore(t)

	for _, input := range []string{"clear\n", "nope\n", ""} {
		cmd := &ClearCommand{globals: &GlobalFlags{}, All: true, stdin: strings.NewReader(input)}
		var err error
		captureOutput(t, func() {
			err = cmd.executeWithStore(context.Background(), store)
		})
		assert.ErrorContains(t, err, "aborted", "input %q", input)
	}
	assert.Equal(t, 2, remaining(t, store))
}

func TestClear_JSON(t *testing.T) {
	store := seededClearStore(t)
	cmd := &ClearCommand{globals: &GlobalFlags{JSON: true}, All: true, Force: true}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, `"cleared": true`)
}
