package domain

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status string   `json:"status"` // healthy, degraded
	Kinds  []string `json:"kinds"`
}

// KindMetrics is a cumulative snapshot for one report kind.
type KindMetrics struct {
	Kind           Kind    `json:"kind"`
	FilesProcessed int64   `json:"files_processed"`
	FilesSkipped   int64   `json:"files_skipped"`
	RowsEmitted    int64   `json:"rows_emitted"`
	SheetsSkipped  int64   `json:"sheets_skipped"`
	SkipRate       float64 `json:"skip_rate"`
}

// EngineMetrics is the snapshot served by GET /v1/metrics/engine.
type EngineMetrics struct {
	Kinds  []KindMetrics `json:"kinds"`
	Period string        `json:"period"`
}
