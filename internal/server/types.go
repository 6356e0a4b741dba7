// Package server provides the HTTP surface of the Wan 2.2 video generation
// API. It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

// RootResponse is the HTTP response for the root metadata endpoint.
type RootResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Message is a human-readable service description.
	Message string `json:"message"`
	// ModelType is the default task configured for this deployment.
	ModelType string `json:"model_type"`
	// AvailableTasks lists the supported task identifiers.
	AvailableTasks []string `json:"available_tasks"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// TasksResponse is the HTTP response for listing tasks.
type TasksResponse struct {
	// AvailableTasks lists the supported task identifiers.
	AvailableTasks []string `json:"available_tasks"`
	// CurrentTask is the default task configured for this deployment.
	CurrentTask string `json:"current_task"`
}

// SizesResponse is the HTTP response for listing sizes of a task.
type SizesResponse struct {
	// Task is the requested task identifier.
	Task string `json:"task"`
	// SupportedSizes lists the "width*height" sizes the task supports.
	SupportedSizes []string `json:"supported_sizes"`
}

// generateForm holds the parsed multipart form fields of a generate request.
type generateForm struct {
	// Prompt is the text description for the video.
	Prompt string `validate:"required"`
	// Task is the generation mode.
	Task string `validate:"required"`
	// Size is the target resolution in "width*height" form.
	Size string `validate:"required"`
	// FrameNum is the number of frames (nil = task default).
	FrameNum *int `validate:"omitempty,min=0,max=1000"`
	// Seed is the random seed (negative = random).
	Seed int64
	// SampleSteps is the number of sampling steps (nil = task default).
	SampleSteps *int `validate:"omitempty,min=0,max=200"`
	// GuideScale is the guidance scale (nil = task default). Zero is a
	// valid explicit value and passes through to the runtime.
	GuideScale *float64 `validate:"omitempty,min=0"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}
