package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringDefaults(t *testing.T) {
	require.Equal(t, Version, String())
}

func TestStringWithBuildInfo(t *testing.T) {
	oldCommit, oldTime, oldVersion := GitCommit, BuildTime, Version
	t.Cleanup(func() { GitCommit, BuildTime, Version = oldCommit, oldTime, oldVersion })

	Version, GitCommit, BuildTime = "v0.3.0", "abc1234", "2026-03-01T12:00:00Z"
	require.Equal(t, "v0.3.0 (commit abc1234, built 2026-03-01T12:00:00Z)", String())
}
