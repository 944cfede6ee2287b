// state.go captures worker process state at failure time.

package warden

import (
	"os"
	"runtime"
	"time"
)

// CaptureWorkerState captures worker metrics at the current moment.
// The start parameter is used to calculate worker uptime.
func CaptureWorkerState(start time.Time) *WorkerState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // Empty hostname is acceptable.

	uptime := time.Since(start)
	if uptime < 0 {
		uptime = 0
	}

	return &WorkerState{
		Hostname:       hostname,
		PID:            os.Getpid(),
		AllocBytes:     int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		Uptime:         uptime,
	}
}
