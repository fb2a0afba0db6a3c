package evaluation

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *evalState) error { return nil }

func waveNames(waves [][]stage) [][]string {
	out := make([][]string, 0, len(waves))

	for _, wave := range waves {
		names := make([]string, 0, len(wave))
		for _, s := range wave {
			names = append(names, s.name)
		}

		sort.Strings(names)
		out = append(out, names)
	}

	return out
}

func TestBuildWaves(t *testing.T) {
	waves, err := buildWaves([]stage{
		{name: "a", run: noop},
		{name: "b", deps: []string{"a"}, run: noop},
		{name: "c", run: noop},
		{name: "d", deps: []string{"b", "c"}, run: noop},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "c"}, {"b"}, {"d"}}, waveNames(waves))
}

func TestBuildWaves_Errors(t *testing.T) {
	t.Run("UnknownDependency", func(t *testing.T) {
		_, err := buildWaves([]stage{
			{name: "a", deps: []string{"missing"}, run: noop},
		})
		assert.ErrorContains(t, err, "unknown stage")
	})

	t.Run("Cycle", func(t *testing.T) {
		_, err := buildWaves([]stage{
			{name: "a", deps: []string{"b"}, run: noop},
			{name: "b", deps: []string{"a"}, run: noop},
		})
		assert.ErrorContains(t, err, "cycle")
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := buildWaves([]stage{
			{name: "a", run: noop},
			{name: "a", run: noop},
		})
		assert.ErrorContains(t, err, "duplicate stage")
	})
}

func TestRunWaves_Ordering(t *testing.T) {
	var (
		mu  sync.Mutex
		ran []string
	)

	record := func(name string) func(context.Context, *evalState) error {
		return func(context.Context, *evalState) error {
			mu.Lock()
			defer mu.Unlock()

			ran = append(ran, name)

			return nil
		}
	}

	waves, err := buildWaves([]stage{
		{name: "first", run: record("first")},
		{name: "second", deps: []string{"first"}, run: record("second")},
	})
	require.NoError(t, err)

	require.NoError(t, runWaves(context.Background(), waves, &evalState{}))
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestRunWaves_StageFailureNamed(t *testing.T) {
	waves, err := buildWaves([]stage{
		{name: "boom", run: func(context.Context, *evalState) error {
			return assert.AnError
		}},
	})
	require.NoError(t, err)

	err = runWaves(context.Background(), waves, &evalState{})
	assert.ErrorContains(t, err, "stage boom")
	assert.ErrorIs(t, err, assert.AnError)
}
