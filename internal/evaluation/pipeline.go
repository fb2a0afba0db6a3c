package evaluation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// stage is one step of the evaluation pipeline. Stages declare the stages
// they depend on by name; execution order is resolved once at service
// construction, never per invocation.
type stage struct {
	name string
	deps []string
	run  func(ctx context.Context, st *evalState) error
}

// buildWaves topologically sorts the stages into waves. Stages inside one
// wave have all their dependencies satisfied by earlier waves and run
// concurrently. A cycle or an unknown dependency is a configuration error.
func buildWaves(stages []stage) ([][]stage, error) {
	byName := make(map[string]stage, len(stages))
	for _, s := range stages {
		if _, dup := byName[s.name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.name)
		}

		byName[s.name] = s
	}

	for _, s := range stages {
		for _, dep := range s.deps {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", s.name, dep)
			}
		}
	}

	done := make(map[string]bool, len(stages))
	remaining := len(stages)

	var waves [][]stage

	for remaining > 0 {
		var wave []stage

		for _, s := range stages {
			if done[s.name] {
				continue
			}

			ready := true

			for _, dep := range s.deps {
				if !done[dep] {
					ready = false
					break
				}
			}

			if ready {
				wave = append(wave, s)
			}
		}

		if len(wave) == 0 {
			return nil, fmt.Errorf("stage dependency cycle among remaining %d stages", remaining)
		}

		for _, s := range wave {
			done[s.name] = true
		}

		remaining -= len(wave)

		waves = append(waves, wave)
	}

	return waves, nil
}

// runWaves executes the waves in order, each wave's stages concurrently.
func runWaves(ctx context.Context, waves [][]stage, st *evalState) error {
	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)

		for _, s := range wave {
			g.Go(func() error {
				if err := s.run(gctx, st); err != nil {
					return fmt.Errorf("stage %s: %w", s.name, err)
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}
