// Package parallel fans element loops out over worker goroutines.
package parallel

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// Validate rejects configs that For cannot honor.
func (c Config) Validate() error {
	if c.NumWorkers < 0 {
		return errors.Errorf("parallel: negative worker count %d", c.NumWorkers)
	}
	if c.MinChunkSize < 0 {
		return errors.Errorf("parallel: negative min chunk size %d", c.MinChunkSize)
	}
	if c.Enabled && c.NumWorkers == 0 {
		return errors.New("parallel: enabled with zero workers")
	}
	return nil
}

// For calls f(lo, hi) over disjoint ranges covering [0, n).
// It runs sequentially when parallelism is disabled or n is too small, and
// returns after every range has been processed.
func For(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// ForEach calls f(i) for every i in [0, n).
func ForEach(n int, f func(i int), cfg Config) {
	For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	}, cfg)
}
