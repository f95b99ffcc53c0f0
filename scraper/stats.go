package scraper

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats tracks scraper request counters since process start.
type Stats struct {
	requestsTotal   atomic.Int64
	requestsSuccess atomic.Int64
	requestsFailed  atomic.Int64
	jobsFound       atomic.Int64
	startTime       time.Time
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) RecordRequest()   { s.requestsTotal.Add(1) }
func (s *Stats) RecordSuccess()   { s.requestsSuccess.Add(1) }
func (s *Stats) RecordFailure()   { s.requestsFailed.Add(1) }
func (s *Stats) RecordJobs(n int) { s.jobsFound.Add(int64(n)) }

// Snapshot is the JSON shape served by the stats endpoint.
type Snapshot struct {
	RequestsTotal   int64  `json:"requests_total"`
	RequestsSuccess int64  `json:"requests_success"`
	RequestsFailed  int64  `json:"requests_failed"`
	JobsFound       int64  `json:"jobs_found"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	UptimeHuman     string `json:"uptime_human"`
}

func (s *Stats) Snapshot() Snapshot {
	uptime := time.Since(s.startTime)
	return Snapshot{
		RequestsTotal:   s.requestsTotal.Load(),
		RequestsSuccess: s.requestsSuccess.Load(),
		RequestsFailed:  s.requestsFailed.Load(),
		JobsFound:       s.jobsFound.Load(),
		UptimeSeconds:   int64(uptime.Seconds()),
		UptimeHuman:     formatUptime(uptime),
	}
}

func formatUptime(d time.Duration) string {
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
