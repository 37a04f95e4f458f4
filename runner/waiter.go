package runner

import (
	"context"
	"time"
)

type waitStatus int

const (
	waitExited waitStatus = iota + 1
	waitTimeLimitExceeded
	waitMemoryLimitExceeded
	waitCanceled
)

type waitResult struct {
	status  waitStatus
	err     error // result of cmd.Wait when exited
	elapsed time.Duration
	peak    uint64 // bytes
}

// waiter polls a running process: memory is sampled on each interval and the
// process is given up to one interval to exit before the next sample
type waiter struct {
	interval    time.Duration
	timeLimit   time.Duration
	memoryLimit float64 // MB
	sampler     MemorySampler
}

func (w *waiter) Wait(ctx context.Context, pid int, done <-chan error) waitResult {
	var peak uint64
	start := time.Now()

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for time.Since(start) < w.timeLimit {
		// sample fails once the process has been reaped
		if rss, err := w.sampler.RSS(pid); err == nil {
			if rss > peak {
				peak = rss
			}
			if float64(rss)/1024/1024 > w.memoryLimit {
				return waitResult{status: waitMemoryLimitExceeded, elapsed: time.Since(start), peak: peak}
			}
		}

		timer.Reset(w.interval)
		select {
		case err := <-done:
			return waitResult{status: waitExited, err: err, elapsed: time.Since(start), peak: peak}
		case <-timer.C:
		case <-ctx.Done():
			return waitResult{status: waitCanceled, err: ctx.Err(), elapsed: time.Since(start), peak: peak}
		}
	}
	select {
	case err := <-done:
		return waitResult{status: waitExited, err: err, elapsed: time.Since(start), peak: peak}
	default:
	}
	return waitResult{status: waitTimeLimitExceeded, elapsed: time.Since(start), peak: peak}
}
