package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector counts HTTP traffic and domain events. A nil *Collector ignores all records.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu     sync.Mutex
	jobs   map[string]uint64
	events map[string]uint64
}

func New() *Collector {
	return &Collector{jobs: map[string]uint64{}, events: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordJob(jobType, status string) {
	c.inc(func() map[string]uint64 { return c.jobs }, jobType+":"+status)
}

// RecordEvent counts lesson events by outcome: added, duplicate, rejected or failed.
func (c *Collector) RecordEvent(outcome string) {
	c.inc(func() map[string]uint64 { return c.events }, outcome)
}

func (c *Collector) inc(bucket func() map[string]uint64, key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	bucket()[key]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	jobs := make(map[string]uint64, len(c.jobs))
	for k, v := range c.jobs {
		jobs[k] = v
	}
	events := make(map[string]uint64, len(c.events))
	for k, v := range c.events {
		events[k] = v
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"jobs":             jobs,
		"lessonEvents":     events,
	}
}
