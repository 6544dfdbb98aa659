package constants

// JobStatus is the canonical status for rows in analysis_jobs.
type JobStatus string

// Stable values (store these exact strings in the job store).
const (
	JobStatusPending    JobStatus = "PENDING"    // uploaded, not yet picked up
	JobStatusProcessing JobStatus = "PROCESSING" // analysis in flight
	JobStatusCompleted  JobStatus = "COMPLETED"  // result workbook written
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
)
