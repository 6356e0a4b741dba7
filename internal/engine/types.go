// Package engine provides the client boundary to the external Wan 2.2
// inference runtime. The runtime owns the model weights, samplers, and GPU
// scheduling; this package only marshals load and generate calls to it.
package engine

import "context"

// LoadRequest describes a model to load on the runtime.
type LoadRequest struct {
	// Task is the Wan task identifier, e.g. "ti2v-5B".
	Task string
	// CheckpointDir is the directory of pre-trained weights on the
	// runtime's filesystem.
	CheckpointDir string
	// DeviceID selects the GPU device.
	DeviceID int
	// T5CPU keeps the T5 text encoder on CPU to save GPU memory.
	T5CPU bool
	// ConvertModelDtype converts model weights to the runtime dtype.
	ConvertModelDtype bool
}

// GenerateRequest describes a single generation call against a loaded model.
type GenerateRequest struct {
	// Prompt is the text description for the video.
	Prompt string
	// ImagePNG is the optional source image as PNG bytes. Encoded to
	// base64 on the wire.
	ImagePNG []byte
	// Width and Height are the target resolution in pixels.
	Width  int
	Height int
	// MaxArea bounds the pixel area for image-conditioned tasks.
	MaxArea int
	// FrameNum is the number of frames to render.
	FrameNum int
	// Shift is the noise schedule shift.
	Shift float64
	// SampleSolver selects the diffusion solver.
	SampleSolver string
	// SampleSteps is the number of sampling steps.
	SampleSteps int
	// GuideScale is the classifier-free guidance scale.
	GuideScale float64
	// Seed is the resolved random seed (never negative on the wire).
	Seed int64
	// FPS is the frame rate the video is rendered at.
	FPS int
	// OffloadModel releases GPU memory between calls.
	OffloadModel bool
}

// DefaultSolver is the diffusion solver used for all tasks.
const DefaultSolver = "unipc"

// Model is a handle to a loaded model on the runtime.
type Model interface {
	// Generate renders a video and returns the MP4 bytes.
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// Engine loads models on the inference runtime.
type Engine interface {
	// Load loads the checkpoint for a task and returns a Model handle.
	Load(ctx context.Context, req LoadRequest) (Model, error)
}

// loadRequest is the wire form of a /load call.
type loadRequest struct {
	Task              string `json:"task"`
	CheckpointDir     string `json:"checkpoint_dir"`
	DeviceID          int    `json:"device_id"`
	T5CPU             bool   `json:"t5_cpu"`
	ConvertModelDtype bool   `json:"convert_model_dtype"`
}

// loadResponse is the wire form of a /load response.
type loadResponse struct {
	ModelID string `json:"model_id"`
	Error   string `json:"error,omitempty"`
}

// generateRequest is the wire form of a /generate call.
type generateRequest struct {
	ModelID      string  `json:"model_id"`
	Prompt       string  `json:"prompt"`
	ImageBase64  string  `json:"image_base64,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	MaxArea      int     `json:"max_area,omitempty"`
	FrameNum     int     `json:"frame_num"`
	Shift        float64 `json:"shift"`
	SampleSolver string  `json:"sample_solver"`
	SampleSteps  int     `json:"sampling_steps"`
	GuideScale   float64 `json:"guide_scale"`
	Seed         int64   `json:"seed"`
	FPS          int     `json:"fps"`
	OffloadModel bool    `json:"offload_model"`
}

// generateResponse is the wire form of a /generate response.
type generateResponse struct {
	VideoBase64 string `json:"video_base64"`
	Error       string `json:"error,omitempty"`
}
