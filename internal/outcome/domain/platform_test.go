package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	t.Run("accepts-known-platforms", func(t *testing.T) {
		for _, value := range []string{"meta", "snap", "tiktok"} {
			platform, err := ParsePlatform(value)
			require.NoError(t, err)
			require.Equal(t, value, platform.String())
		}
	})

	t.Run("rejects-unknown-platforms", func(t *testing.T) {
		for _, value := range []string{"", "Meta", "google", "bing"} {
			_, err := ParsePlatform(value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownPlatform)
		}
	})
}

func TestParsePlatforms(t *testing.T) {
	t.Run("empty-means-all", func(t *testing.T) {
		platforms, err := ParsePlatforms(nil)
		require.NoError(t, err)
		require.Equal(t, AllPlatforms(), platforms)
	})

	t.Run("explicit-subset", func(t *testing.T) {
		platforms, err := ParsePlatforms([]string{"tiktok", "meta"})
		require.NoError(t, err)
		require.Equal(t, []Platform{PlatformTikTok, PlatformMeta}, platforms)
	})

	t.Run("one-bad-value-fails-the-list", func(t *testing.T) {
		_, err := ParsePlatforms([]string{"meta", "google"})
		require.Error(t, err)
	})
}

func TestAllPlatformsOrder(t *testing.T) {
	// The first entry is the canonical platform fed to event-id derivation;
	// reordering would silently change every generated id.
	require.Equal(t, []Platform{PlatformMeta, PlatformSnap, PlatformTikTok}, AllPlatforms())
}
