package rod

import (
	"runtime"
	"sync"
)

// ParallelConfig configures how line decodes are spread across goroutines.
type ParallelConfig struct {
	// NumWorkers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum lines per worker before parallelization.
	// If total lines < GrainSize * NumWorkers, decoding runs sequentially.
	GrainSize int
}

// DefaultParallelConfig returns the default parallel configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		NumWorkers: 0,
		GrainSize:  16, // a line decode is cheap; don't spawn for tiny frames
	}
}

var (
	parallelConfig   = DefaultParallelConfig()
	parallelConfigMu sync.RWMutex
)

// SetParallelConfig sets the global parallel configuration.
func SetParallelConfig(config ParallelConfig) {
	parallelConfigMu.Lock()
	defer parallelConfigMu.Unlock()
	parallelConfig = config
}

// GetParallelConfig returns the current parallel configuration.
func GetParallelConfig() ParallelConfig {
	parallelConfigMu.RLock()
	defer parallelConfigMu.RUnlock()
	return parallelConfig
}

func effectiveWorkers(config ParallelConfig) int {
	if config.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return config.NumWorkers
}

// ParallelForWithError runs fn(i) for i in [0, n) across the configured
// workers and returns the first error encountered (order not guaranteed).
// Each index must touch disjoint state; the decoder relies on this to keep
// output bit-identical regardless of scheduling.
func ParallelForWithError(n int, fn func(i int) error) error {
	config := GetParallelConfig()
	numWorkers := effectiveWorkers(config)

	if n <= config.GrainSize*numWorkers || numWorkers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	chunkSize := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() {
						firstErr = err
					})
					return
				}
			}
		}(start, end)
	}

	wg.Wait()
	return firstErr
}
