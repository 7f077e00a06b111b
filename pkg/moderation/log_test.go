package moderation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLine(t *testing.T) {
	e := Event{
		Kind:   "report",
		Time:   time.Unix(1756684800, 0),
		Fields: []string{"100", "alice"},
	}
	assert.Equal(t, "report@1756684800:100,alice", e.Line())
}

func TestParseEvent(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		parsed, err := ParseEvent("report@1756684800:100,alice")
		require.NoError(t, err)
		assert.Equal(t, "report", parsed.Kind)
		assert.Equal(t, int64(1756684800), parsed.Time.Unix())
		assert.Equal(t, []string{"100", "alice"}, parsed.Fields)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, line := range []string{"", "report", "report@nope:100", "report@123"} {
			_, err := ParseEvent(line)
			assert.Error(t, err, line)
		}
	})
}

func TestLog(t *testing.T) {
	t.Run("ReportsAppendInOrder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "moderation.wsv")
		log := New(path, 16)
		require.NoError(t, log.Start())

		require.NoError(t, log.Report("100", "alice"))
		require.NoError(t, log.Report("200", "bob"))
		log.Stop()

		events, err := log.ReadAll()
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, []string{"100", "alice"}, events[0].Fields)
		assert.Equal(t, []string{"200", "bob"}, events[1].Fields)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "report@"))
	})

	t.Run("AppendAfterStopFails", func(t *testing.T) {
		log := New(filepath.Join(t.TempDir(), "moderation.wsv"), 16)
		require.NoError(t, log.Start())
		log.Stop()

		assert.ErrorIs(t, log.Report("100", "alice"), ErrStopped)
	})

	t.Run("AppendBeforeStartFails", func(t *testing.T) {
		log := New(filepath.Join(t.TempDir(), "moderation.wsv"), 16)
		assert.ErrorIs(t, log.Report("100", "alice"), ErrStopped)
	})

	t.Run("StartTwiceFails", func(t *testing.T) {
		log := New(filepath.Join(t.TempDir(), "moderation.wsv"), 16)
		require.NoError(t, log.Start())
		defer log.Stop()

		assert.Error(t, log.Start())
	})

	t.Run("StopIsIdempotent", func(t *testing.T) {
		log := New(filepath.Join(t.TempDir(), "moderation.wsv"), 16)
		require.NoError(t, log.Start())
		log.Stop()
		log.Stop()
	})

	t.Run("ReadAllMissingFile", func(t *testing.T) {
		log := New(filepath.Join(t.TempDir(), "moderation.wsv"), 16)
		events, err := log.ReadAll()
		require.NoError(t, err)
		assert.Nil(t, events)
	})

	t.Run("StopDrainsQueuedEvents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "moderation.wsv")
		log := New(path, 64)
		require.NoError(t, log.Start())

		for i := 0; i < 50; i++ {
			require.NoError(t, log.Report("100", "alice"))
		}
		log.Stop()

		events, err := log.ReadAll()
		require.NoError(t, err)
		assert.Len(t, events, 50)
	})
}
