package models

import "time"

// JobStatus is the outcome of a supervised lifecycle operation.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job records one accepted lifecycle operation and how it ended.
type Job struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Operation  string     `gorm:"not null;size:32;index" json:"operation"`
	Status     JobStatus  `gorm:"not null;size:16" json:"status"`
	Params     string     `gorm:"type:text" json:"params,omitempty"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName returns the table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// Done reports whether the job has finished.
func (j *Job) Done() bool {
	return j.Status != JobRunning
}

// Duration returns how long the job ran, or has been running so far.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt == nil {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
