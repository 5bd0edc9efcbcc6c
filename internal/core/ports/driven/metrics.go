package driven

import "time"

// Pipeline stages reported to PipelineMetrics.
const (
	StagePlanning  = "planning"
	StageRetrieval = "retrieval"
	StageSynthesis = "synthesis"
	StageIngest    = "ingest"
)

// PipelineMetrics records pipeline activity.
type PipelineMetrics interface {
	// ObserveStage records the duration and outcome of a pipeline stage.
	ObserveStage(stage string, d time.Duration, err error)

	// DocumentProcessed records a document lifecycle outcome.
	DocumentProcessed(namespace, status string)

	// QueryAnswered records a completed query with its confidence.
	QueryAnswered(namespace string, confidence float64, sources int)
}
