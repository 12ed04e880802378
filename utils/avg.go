package utils

import (
	"sync"
	"time"
)

// AvgVal is a running average. The scan executor feeds it per-worker
// key throughput so operators can see how fast a maintenance pass moves.
type AvgVal struct {
	v     float64
	count int
	lock  sync.Mutex
}

func NewAvgVal(val float64) *AvgVal {
	return &AvgVal{
		v:     val,
		count: 1,
	}
}

func (a *AvgVal) Add(val float64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.v = (float64(a.count)*a.v + val) / float64(a.count+1)
	a.count++
}

func (a *AvgVal) Val() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.v
}

// AddRate records count/elapsed as one sample. Zero or negative elapsed
// samples are dropped.
func (a *AvgVal) AddRate(count uint64, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	a.Add(float64(count) / elapsed.Seconds())
}
