package domain

import "time"

// Checkpoint is the durable cursor of a batch run.
type Checkpoint struct {
	NextIndex    int       `json:"startIndex"`
	TotalCreated int       `json:"totalCreated"`
	TotalFailed  int       `json:"totalFailed"`
	BatchNumber  int       `json:"batchNumber"`
	Cycle        int       `json:"cycle,omitempty"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// Advance returns the checkpoint after a batch ending at end (exclusive).
// The cursor never moves backwards.
func (c Checkpoint) Advance(end, created, failed int, at time.Time) Checkpoint {
	next := c
	if end > next.NextIndex {
		next.NextIndex = end
	}
	next.TotalCreated += created
	next.TotalFailed += failed
	next.BatchNumber++
	next.LastUpdate = at
	return next
}

// Fresh reports whether no pass has made progress yet: no batch saved and no
// cycle completed.
func (c Checkpoint) Fresh() bool {
	return c.NextIndex == 0 && c.BatchNumber == 0 && c.Cycle == 0
}

// Wrap resets the cursor for the next continuous cycle, keeping totals.
func (c Checkpoint) Wrap(at time.Time) Checkpoint {
	next := c
	next.NextIndex = 0
	next.BatchNumber = 0
	next.Cycle++
	next.LastUpdate = at
	return next
}

// BatchResult summarises one processed slice of cities.
type BatchResult struct {
	Number     int
	StartIndex int
	EndIndex   int
	Created    int
	Failed     int
	Skipped    int
	Fallbacks  int
	Abandoned  bool
	Articles   []Article
}

// RunSummary is reported when a run or a continuous cycle ends.
type RunSummary struct {
	RunID     string
	Cycle     int
	Created   int
	Failed    int
	Skipped   int
	Fallbacks int
	Abandoned int
	Batches   int
	Processed int
	StartedAt time.Time
	Duration  time.Duration
	Completed bool
}

// Add folds a batch result into the summary.
func (s *RunSummary) Add(b BatchResult) {
	s.Created += b.Created
	s.Failed += b.Failed
	s.Skipped += b.Skipped
	s.Fallbacks += b.Fallbacks
	s.Batches++
	s.Processed += b.EndIndex - b.StartIndex
	if b.Abandoned {
		s.Abandoned++
	}
}
