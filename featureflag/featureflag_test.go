package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagSeedSampleIndex)})

	t.Run("run if enabled", func(t *testing.T) {
		var seeded bool
		f.IfSet(FlagSeedSampleIndex, func() {
			seeded = true
		})
		require.True(t, seeded)

		var streamDisabled bool
		f.IfSet(FlagDisableStreamEndpoint, func() {
			streamDisabled = true
		})
		require.False(t, streamDisabled)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var seeded bool
		f.IfNotSet(FlagSeedSampleIndex, func() {
			seeded = true
		})
		require.False(t, seeded)

		var streamEnabled bool
		f.IfNotSet(FlagDisableStreamEndpoint, func() {
			streamEnabled = true
		})
		require.True(t, streamEnabled)
	})

	t.Run("is set", func(t *testing.T) {
		require.True(t, f.IsSet(FlagSeedSampleIndex))
		require.False(t, f.IsSet(FlagDisableSnapshotEndpoint))
		require.False(t, FeatureFlag(nil).IsSet(FlagSeedSampleIndex))
	})
}
