package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// readEvents parses a newline-delimited JSON event file.
func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestEmitWhenStopped(t *testing.T) {
	el := NewEventLog()
	assert.False(t, el.Emit(NewEvent(EventTypeLevelUp, 1, "player", LevelUpPayload{Level: 2})))
	assert.False(t, el.EmitSimple(EventTypeLevelUp, 1, "player", nil))
	assert.Zero(t, el.Stats().Total)

	var nilLog *EventLog
	assert.False(t, nilLog.Running())
}

func TestBufferFullDropsNewest(t *testing.T) {
	el := NewEventLog()
	el.globalLimiter = rate.NewLimiter(rate.Inf, 0)
	el.running.Store(true) // no writer: nothing drains

	for i := 0; i < EventBufferSize; i++ {
		require.True(t, el.Emit(Event{Type: EventTypeEnemyKilled, TickNum: uint64(i)}))
	}
	assert.False(t, el.Emit(Event{Type: EventTypeEnemyKilled, TickNum: 9999}))

	stats := el.Stats()
	assert.Equal(t, uint64(EventBufferSize), stats.Total)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(EventBufferSize), stats.Pending)

	// The oldest events survive.
	batch := el.collectBatch(nil)
	require.Len(t, batch, BatchFlushSize)
	assert.Equal(t, uint64(0), batch[0].TickNum)
	assert.Equal(t, uint64(1), batch[0].Sequence)
}

func TestRateLimitCountsEveryEmit(t *testing.T) {
	el := NewEventLog()
	el.running.Store(true)

	const n = 1000
	for i := 0; i < n; i++ {
		el.Emit(Event{Type: EventTypeEnemyKilled, Source: "enemy"})
	}

	stats := el.Stats()
	assert.Equal(t, uint64(n), stats.Total+stats.Dropped)
	assert.NotZero(t, stats.Dropped)
}

func TestEventLogWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog()
	require.NoError(t, el.Start(path))
	require.NoError(t, el.Start(path), "second start is a no-op")

	require.True(t, el.EmitSimple(EventTypeRunStart, 0, "run", RunStartPayload{RunID: "abc", Seed: 7}))
	require.True(t, el.EmitSimple(EventTypeLevelUp, 40, "player", LevelUpPayload{Level: 2}))
	require.True(t, el.EmitSimple(EventTypeBossSpawned, 90, "boss", BossPayload{Tier: 0, Variant: "Warden"}))

	el.Stop()
	el.Stop()
	assert.False(t, el.Running())

	events := readEvents(t, path)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Sequence)
		assert.Equal(t, EventVersion, ev.Version)
	}
	assert.Equal(t, EventTypeLevelUp, events[1].Type)

	var payload LevelUpPayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, 2, payload.Level)

	assert.Zero(t, el.Stats().Pending)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "boss_defeated", EventTypeBossDefeated.String())
	assert.Equal(t, "quality_change", EventTypeQualityChange.String())
	assert.Equal(t, "unknown", EventType(200).String())
}
