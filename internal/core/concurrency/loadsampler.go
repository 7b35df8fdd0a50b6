package concurrency

import (
	"context"

	"github.com/shirou/gopsutil/v4/load"
)

// GopsutilLoadSampler is the production LoadSampler, backed by the same
// gopsutil/v4/load package internal/http/handlers/health.go reports system
// load through.
type GopsutilLoadSampler struct{}

// Load1 returns the 1-minute load average.
func (GopsutilLoadSampler) Load1(_ context.Context) (float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}
