package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gundb/gun-go/internal/config"
)

func TestSplitNonEmptyIgnoresBlankSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitNonEmpty("a,b,c"))
	assert.Equal(t, []string{"a", "b"}, splitNonEmpty("a,,b,"))
	assert.Nil(t, splitNonEmpty(""))
}

func TestApplyFlagOverridesOnlyTouchesSetFields(t *testing.T) {
	cfg := &config.Config{Port: "8765", StoragePath: "./data"}
	applyFlagOverrides(cfg, "ws://a,ws://b", "9000", "/tmp/gun", true, true)

	assert.Equal(t, []string{"ws://a", "ws://b"}, cfg.Peers)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/tmp/gun", cfg.StoragePath)
	assert.True(t, cfg.SuperPeer)
	assert.True(t, cfg.Radisk)
}

func TestApplyFlagOverridesLeavesConfigAloneWhenFlagsEmpty(t *testing.T) {
	cfg := &config.Config{Port: "8765", StoragePath: "./data"}
	applyFlagOverrides(cfg, "", "", "", false, false)

	assert.Empty(t, cfg.Peers)
	assert.Equal(t, "8765", cfg.Port)
	assert.Equal(t, "./data", cfg.StoragePath)
	assert.False(t, cfg.SuperPeer)
	assert.False(t, cfg.Radisk)
}
