package rod

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelForWithErrorCoversAllIndices(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())

	configs := []ParallelConfig{
		{NumWorkers: 1},                // sequential
		{NumWorkers: 4, GrainSize: 1},  // parallel
		{NumWorkers: 4, GrainSize: 64}, // below grain, sequential fallback
		{NumWorkers: 0, GrainSize: 1},  // GOMAXPROCS workers
	}
	for _, config := range configs {
		SetParallelConfig(config)

		const n = 100
		visits := make([]int32, n)
		err := ParallelForWithError(n, func(i int) error {
			atomic.AddInt32(&visits[i], 1)
			return nil
		})
		if err != nil {
			t.Fatalf("config %+v: %v", config, err)
		}
		for i, v := range visits {
			if v != 1 {
				t.Errorf("config %+v: index %d visited %d times", config, i, v)
			}
		}
	}
}

func TestParallelForWithErrorPropagates(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())

	sentinel := errors.New("boom")
	for _, config := range []ParallelConfig{
		{NumWorkers: 1},
		{NumWorkers: 4, GrainSize: 1},
	} {
		SetParallelConfig(config)
		err := ParallelForWithError(100, func(i int) error {
			if i == 37 {
				return sentinel
			}
			return nil
		})
		if !errors.Is(err, sentinel) {
			t.Errorf("config %+v: got %v, want sentinel", config, err)
		}
	}
}

func TestParallelForWithErrorZeroItems(t *testing.T) {
	called := false
	err := ParallelForWithError(0, func(i int) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Errorf("n=0: err=%v called=%v", err, called)
	}
}

func TestParallelConfigRoundTrip(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())

	want := ParallelConfig{NumWorkers: 3, GrainSize: 7}
	SetParallelConfig(want)
	if got := GetParallelConfig(); got != want {
		t.Errorf("GetParallelConfig: got %+v, want %+v", got, want)
	}
}
