package types

// Segment is one timed span of recognized speech.
type Segment struct {
	// Start of the segment in seconds from the beginning of the audio.
	// example: 0.0
	Start float64 `json:"start" example:"0.0"`
	// End of the segment in seconds.
	// example: 3.48
	End float64 `json:"end" example:"3.48"`
	// Recognized text for this span.
	// example: Hello world.
	Text string `json:"text" example:"Hello world."`
}

// TranscribeResponse is returned by POST /transcribe on success.
type TranscribeResponse struct {
	// Full transcript text.
	// example: Hello world.
	Text string `json:"text" example:"Hello world."`
	// Per-segment detail; present only when return_segments=true.
	Segments []Segment `json:"segments,omitempty"`
	// Detected (or requested) language as an ISO 639-1 code.
	// example: en
	Language string `json:"language,omitempty" example:"en"`
}

// ModelsResponse wraps the list of supported model names for GET /models.
type ModelsResponse struct {
	// Supported Whisper model names.
	// example: ["tiny","base","small"]
	Models []string `json:"models"`
}

// ErrorResponse is the consistent JSON error payload.
type ErrorResponse struct {
	// Machine-readable error kind.
	// example: validation
	Kind string `json:"error_kind" example:"validation"`
	// Human-readable message.
	// example: file exceeds maximum allowed size
	Message string `json:"message" example:"file exceeds maximum allowed size"`
}

// LoadedModel identifies one cached model handle for GET /health.
type LoadedModel struct {
	// Model name.
	// example: base
	Name string `json:"name" example:"base"`
	// Device the model was loaded on (cpu or gpu).
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Number of jobs currently using the handle.
	// example: 1
	Refs int `json:"refs" example:"1"`
}

// PoolStatus reports worker pool utilization.
type PoolStatus struct {
	// Workers currently executing inference.
	// example: 2
	Busy int `json:"busy" example:"2"`
	// Configured worker ceiling.
	// example: 4
	Ceiling int `json:"ceiling" example:"4"`
	// Jobs queued waiting for a free worker.
	// example: 8
	Queued int `json:"queued" example:"8"`
	// Maximum queue depth before backpressure.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
}

// JobCounters aggregates terminal job outcomes since process start.
type JobCounters struct {
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	TimedOut  uint64 `json:"timed_out"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Ready is true once the HTTP layer is initialized and serving.
	// example: true
	Ready bool `json:"ready" example:"true"`
	// Pool reports worker utilization.
	Pool PoolStatus `json:"pool"`
	// Models currently held by the registry cache.
	LoadedModels []LoadedModel `json:"loaded_models"`
	// Total model loads performed.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total cache evictions performed.
	// example: 1
	EvictionsTotal uint64 `json:"evictions_total" example:"1"`
	// Job outcomes since process start.
	Jobs JobCounters `json:"jobs"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}
