package domain

type CAMJobKind string

const (
	JobKindDXF   CAMJobKind = "DXF"
	JobKindGCode CAMJobKind = "GCODE"
)

type CAMJobStatus string

const (
	JobCreated    CAMJobStatus = "Created"
	JobProcessing CAMJobStatus = "Processing"
	JobCompleted  CAMJobStatus = "Completed"
	JobFailed     CAMJobStatus = "Failed"
)

// Terminal reports whether no further status changes can happen.
func (s CAMJobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CAMJob is the front-end view of a backend manufacturing-file job. The
// backend owns the lifecycle; this side only observes it.
type CAMJob struct {
	JobID      string       `json:"job_id"`
	Kind       CAMJobKind   `json:"kind"`
	Status     CAMJobStatus `json:"status"`
	ArtifactID string       `json:"artifact_id,omitempty"`
	Error      string       `json:"error,omitempty"`
}
