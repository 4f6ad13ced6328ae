package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withVersion(t *testing.T, version, commit string) {
	t.Helper()
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = version, commit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })
}

func TestLinkerVersionWins(t *testing.T) {
	withVersion(t, "v1.4.0", "0123456789abcdef")

	assert.Equal(t, "v1.4.0", GetVersion())
	assert.Equal(t, "0123456789abcdef", GetGitCommit())
	assert.Equal(t, "v1.4.0 (0123456)", GetShortVersion())
	assert.True(t, IsRelease())
}

func TestDevVersion(t *testing.T) {
	withVersion(t, "dev", "unknown")

	v := GetVersion()
	assert.True(t, v == "dev" || strings.HasPrefix(v, "dev-") || strings.HasPrefix(v, "v"), v)
	if strings.HasPrefix(v, "dev") {
		assert.False(t, IsRelease())
	}
}

func TestGetBuildInfo(t *testing.T) {
	withVersion(t, "v2.0.0", "abcdef0123")

	info := GetBuildInfo()
	assert.Equal(t, "v2.0.0", info.Version)
	assert.Equal(t, "abcdef0123", info.GitCommit)
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
}

func TestParseBuildTime(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       time.Time
	}{
		{"rfc3339", []string{"2024-03-01T10:00:00Z"}, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"without zone", []string{"2024-03-01T10:00:00"}, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"falls through unknown", []string{"unknown", "2024-03-01 10:00:00"}, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"nothing parses", []string{"", "yesterday"}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseBuildTime(tt.candidates...)))
		})
	}
}
