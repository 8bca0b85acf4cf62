package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-and-die/agent/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "cache.entity_created",
		Tick:     12,
		Time:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Actor:    logging.Ref(logging.EntityKindAgent, 1),
		Targets:  []logging.EntityRef{logging.Ref(logging.EntityKindObject, 99)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPerception,
		Payload:  map[string]string{"name": "Peacebloom"},
	}
}

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	require.NoError(t, sink.Write(sampleEvent()))

	line := buf.String()
	assert.Contains(t, line, "[cache.entity_created] tick=12 actor=agent:1 severity=info")
	assert.Contains(t, line, "targets=object:99")
	assert.Contains(t, line, `payload={"name":"Peacebloom"}`)
}

func TestJSONWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Close(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "cache.entity_created", decoded["type"])
	assert.Equal(t, "info", decoded["severity"])
	assert.Equal(t, float64(12), decoded["tick"])
}

func TestMemorySinkCopiesEvents(t *testing.T) {
	sink := NewMemorySink()
	event := sampleEvent().WithExtra("k", "v")
	require.NoError(t, sink.Write(event))
	event.Extra["k"] = "mutated"

	stored := sink.OfType("cache.entity_created")
	require.Len(t, stored, 1)
	assert.Equal(t, "v", stored[0].Extra["k"])

	sink.Reset()
	assert.Empty(t, sink.Events())
}
