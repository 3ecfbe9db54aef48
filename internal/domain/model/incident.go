package model

import "time"

// OccurredLayout is the host's incident timestamp format.
const OccurredLayout = "2006-01-02T15:04:05Z"

// Incident is a record handed to the host for ingestion.
type Incident struct {
	Name     string `json:"name"`
	Occurred string `json:"occurred"`
	RawJSON  string `json:"rawJSON"`

	// SourceID is the vendor id the incident was deduplicated by.
	SourceID string `json:"-"`
}

// Checkpoint is the persisted state of a fetch loop.
type Checkpoint struct {
	// LastRun is the unix time (seconds, UTC) of the last successful fetch.
	LastRun int64 `json:"last_run"`
	// SeenIDs holds recently imported alert ids, oldest first.
	SeenIDs []string `json:"seen_ids,omitempty"`
}

// LastRunTime returns LastRun as a UTC time, or the zero time when unset.
func (c Checkpoint) LastRunTime() time.Time {
	if c.LastRun <= 0 {
		return time.Time{}
	}
	return time.Unix(c.LastRun, 0).UTC()
}
