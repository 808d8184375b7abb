package serve

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer_CheckBatch_RaceCondition tests that check_batch responses are
// sent even when EOF arrives before the main loop processes the pending
// request.
func TestServer_CheckBatch_RaceCondition(t *testing.T) {
	for i := range 10 {
		request := `{"type":"check_batch","payload":{"items":[{"root":"/a"},{"root":"/b"}]}}` + "\n"
		in := strings.NewReader(request)
		out := &strings.Builder{}

		srv := NewServer(fakeChecker(), in, out)
		err := srv.Run(context.Background())
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2, "iteration %d: expected 2 lines (ready + check_batch response), got %d", i, len(lines))

		var resp Response
		err = json.Unmarshal([]byte(lines[1]), &resp)
		require.NoError(t, err, "iteration %d: failed to unmarshal response", i)

		assert.True(t, resp.Success, "iteration %d: expected success", i)
		assert.Equal(t, "check_batch", resp.Type, "iteration %d: expected check_batch type", i)
	}
}
