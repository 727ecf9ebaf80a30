package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning JobStatus = "RUNNING" // extraction call in flight
	JobStatusOK      JobStatus = "OK"      // extraction completed, data stored
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
