package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialIDGeneratorNew(t *testing.T) {
	t.Run("returns a new id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			id := idGen.New()
			require.Equal(t, uint32(i), id)
		}
	})

	t.Run("returns a reusable id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			idGen.New()
		}

		idGen.Reuse(2)
		id := idGen.New()
		require.Equal(t, uint32(2), id)
	})
}

func TestSequentialIDGeneratorObserve(t *testing.T) {
	t.Run("observed id is skipped", func(t *testing.T) {
		var idGen SequentialIDGenerator

		idGen.Observe(10)
		require.Equal(t, uint32(11), idGen.New())
	})

	t.Run("lower id does not rewind", func(t *testing.T) {
		var idGen SequentialIDGenerator

		idGen.Observe(10)
		idGen.Observe(3)
		require.Equal(t, uint32(11), idGen.New())
	})

	t.Run("observed id is no longer reusable", func(t *testing.T) {
		var idGen SequentialIDGenerator

		idGen.New()
		idGen.New()
		idGen.Reuse(1)
		idGen.Observe(1)
		require.Equal(t, uint32(3), idGen.New())
	})
}
