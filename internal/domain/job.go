package domain

// JobStatus enumerates generation job milestones.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// GenerationJob is one attempted production of an article for a city.
// A job reaches a terminal status exactly once.
type GenerationJob struct {
	City        City
	Theme       Theme
	MaxAttempts int
	Attempts    int
	Status      JobStatus
	LastError   string
	Draft       Draft
}

// NewGenerationJob builds a pending job; maxAttempts below one is treated as one.
func NewGenerationJob(city City, theme Theme, maxAttempts int) *GenerationJob {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &GenerationJob{
		City:        city,
		Theme:       theme,
		MaxAttempts: maxAttempts,
		Status:      StatusPending,
	}
}

// Attempt records the start of a new try. It reports false once the
// attempt budget is spent or the job is already terminal.
func (j *GenerationJob) Attempt() bool {
	if j.Terminal() || j.Attempts >= j.MaxAttempts {
		return false
	}
	j.Attempts++
	return true
}

// Succeed moves the job to succeeded; it is a no-op on terminal jobs.
func (j *GenerationJob) Succeed(draft Draft) {
	if j.Terminal() {
		return
	}
	j.Status = StatusSucceeded
	j.Draft = draft
	j.LastError = ""
}

// Fail moves the job to failed; it is a no-op on terminal jobs.
func (j *GenerationJob) Fail(err error) {
	if j.Terminal() {
		return
	}
	j.Status = StatusFailed
	if err != nil {
		j.LastError = err.Error()
	}
}

// Terminal reports whether the job reached its final status.
func (j *GenerationJob) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}
