package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationsFlagsCoreImportingHost(t *testing.T) {
	pkgs := []packageInfo{
		{ImportPath: "mine-and-die/agent/internal/states", Imports: []string{
			"context",
			"mine-and-die/agent/internal/behavior",
			"mine-and-die/agent/internal/simenv",
		}},
		{ImportPath: "mine-and-die/agent/internal/app", Imports: []string{
			"mine-and-die/agent/internal/simenv",
		}},
		{ImportPath: "mine-and-die/agent/internal/locations/sqlitestore", Imports: []string{
			"mine-and-die/agent/internal/locations",
			"mine-and-die/agent/internal/config",
		}},
	}

	got := violations(pkgs, rules)
	assert.Equal(t, []string{
		"mine-and-die/agent/internal/locations/sqlitestore -> mine-and-die/agent/internal/config",
		"mine-and-die/agent/internal/states -> mine-and-die/agent/internal/simenv",
	}, got)
}

func TestLeafPackagesStayLeaves(t *testing.T) {
	pkgs := []packageInfo{
		{ImportPath: "mine-and-die/agent/internal/env", Imports: []string{"mine-and-die/agent/internal/geom"}},
		{ImportPath: "mine-and-die/agent/internal/geom", Imports: []string{"math", "mine-and-die/agent/internal/entity"}},
	}
	assert.Equal(t, []string{
		"mine-and-die/agent/internal/geom -> mine-and-die/agent/internal/entity",
	}, violations(pkgs, rules[1:]))
}

func TestDecodePackagesReadsStream(t *testing.T) {
	stream := `{"ImportPath":"a","Imports":["b"]}
{"ImportPath":"c"}`
	pkgs, err := decodePackages(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "c", pkgs[1].ImportPath)
}
