package queue

import "time"

// IngestJob is the message body published to IngestQueue.
type IngestJob struct {
	SourceID   string    `json:"source_id"`
	ProjectID  string    `json:"project_id"`
	RawText    string    `json:"raw_text"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DeleteJob is the message body published to DeleteQueue.
type DeleteJob struct {
	SourceID   string    `json:"source_id"`
	ProjectID  string    `json:"project_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
