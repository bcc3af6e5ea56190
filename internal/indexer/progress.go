package indexer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a build run
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Phase is the pipeline stage a running build is in
type Phase string

const (
	PhaseDiscovering Phase = "discovering"
	PhaseEmbedding   Phase = "embedding"
	PhasePersisting  Phase = "persisting"
	PhaseDone        Phase = "done"
)

// maxErrorMessages bounds Statistics.ErrorMessages
const maxErrorMessages = 20

// Progress is a point-in-time view of a build
type Progress struct {
	RunID  string
	Status Status
	Phase  Phase

	DocumentsTotal     int
	DocumentsProcessed int
	DocumentsSkipped   int

	ChunksTotal    int // chunks discovered so far
	ChunksEmbedded int // vectors obtained from the provider
	CacheHits      int

	StartTime time.Time
	EndTime   time.Time
}

// Statistics summarises a finished build
type Statistics struct {
	RunID            string
	Status           Status
	DocumentsIndexed int
	DocumentsSkipped int
	ChunksTotal      int
	ChunksEmbedded   int
	CacheHits        int
	BatchesFailed    int
	EntriesPruned    int
	Duration         time.Duration
	ErrorMessages    []string
}

// tracker is the mutable state behind Progress, updated from many goroutines
type tracker struct {
	runID string
	start time.Time

	documentsTotal     atomic.Int32
	documentsProcessed atomic.Int32
	documentsSkipped   atomic.Int32
	chunksTotal        atomic.Int32
	chunksEmbedded     atomic.Int32
	cacheHits          atomic.Int32
	batchesFailed      atomic.Int32

	mu     sync.Mutex
	status Status
	phase  Phase
	end    time.Time
	errors []string
}

func newTracker(runID string) *tracker {
	return &tracker{
		runID:  runID,
		start:  time.Now(),
		status: StatusRunning,
		phase:  PhaseDiscovering,
	}
}

func (t *tracker) setPhase(phase Phase) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
}

func (t *tracker) finish(status Status) {
	t.mu.Lock()
	t.status = status
	t.phase = PhaseDone
	t.end = time.Now()
	t.mu.Unlock()
}

// recordError keeps the first maxErrorMessages messages
func (t *tracker) recordError(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errors) < maxErrorMessages {
		t.errors = append(t.errors, fmt.Sprintf(format, args...))
	}
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Progress{
		RunID:              t.runID,
		Status:             t.status,
		Phase:              t.phase,
		DocumentsTotal:     int(t.documentsTotal.Load()),
		DocumentsProcessed: int(t.documentsProcessed.Load()),
		DocumentsSkipped:   int(t.documentsSkipped.Load()),
		ChunksTotal:        int(t.chunksTotal.Load()),
		ChunksEmbedded:     int(t.chunksEmbedded.Load()),
		CacheHits:          int(t.cacheHits.Load()),
		StartTime:          t.start,
		EndTime:            t.end,
	}
}

func (t *tracker) statistics(pruned int) *Statistics {
	p := t.snapshot()

	t.mu.Lock()
	errs := append([]string(nil), t.errors...)
	t.mu.Unlock()

	end := p.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	return &Statistics{
		RunID:            p.RunID,
		Status:           p.Status,
		DocumentsIndexed: p.DocumentsProcessed - p.DocumentsSkipped,
		DocumentsSkipped: p.DocumentsSkipped,
		ChunksTotal:      p.ChunksTotal,
		ChunksEmbedded:   p.ChunksEmbedded,
		CacheHits:        p.CacheHits,
		BatchesFailed:    int(t.batchesFailed.Load()),
		EntriesPruned:    pruned,
		Duration:         end.Sub(p.StartTime),
		ErrorMessages:    errs,
	}
}

// String renders the progress as a single status line
func (p Progress) String() string {
	switch p.Status {
	case StatusIdle, "":
		return "Idle"
	case StatusRunning:
		if p.Phase == PhaseDiscovering {
			return fmt.Sprintf("Indexing: %d/%d documents scanned, %d chunks (%d cached)",
				p.DocumentsProcessed, p.DocumentsTotal, p.ChunksTotal, p.CacheHits)
		}
		return fmt.Sprintf("Indexing: %d/%d documents, %d/%d chunks embedded (%d cached)",
			p.DocumentsProcessed, p.DocumentsTotal, p.ChunksEmbedded, p.ChunksTotal-p.CacheHits, p.CacheHits)
	case StatusCancelled:
		return fmt.Sprintf("Indexing cancelled: %d/%d documents, %d/%d chunks embedded",
			p.DocumentsProcessed, p.DocumentsTotal, p.ChunksEmbedded, p.ChunksTotal-p.CacheHits)
	case StatusFailed:
		return "Indexing failed"
	default:
		return fmt.Sprintf("Indexed %d documents, %d chunks (%d cached) in %s",
			p.DocumentsProcessed-p.DocumentsSkipped, p.ChunksTotal, p.CacheHits,
			p.EndTime.Sub(p.StartTime).Round(time.Millisecond))
	}
}
