package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSchemaDescribesConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schema", "agent.json")
	require.NoError(t, writeSchema(out, buildSchema()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Mine & Die Agent Config", doc["title"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema has properties: %s", data)
	for _, section := range []string{"loop", "cache", "scoring", "tasks", "search", "locations", "logging", "status", "demo"} {
		assert.Contains(t, props, section)
	}

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
