// Package generate provides the video generation use case. It resolves
// request parameters against the per-task defaults, loads and caches model
// handles on the inference runtime, and persists the rendered video.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/wanserve/wan22-api/internal/engine"
	"github.com/wanserve/wan22-api/internal/storage"
	"github.com/wanserve/wan22-api/internal/wan"
)

// Static errors for generation requests.
var (
	// ErrImageRequired is returned when an i2v task is requested without a source image.
	ErrImageRequired = errors.New("generate: image is required for i2v task")
	// ErrCheckpointNotFound is returned when the task's checkpoint directory does not exist.
	ErrCheckpointNotFound = errors.New("generate: model checkpoint not found")
)

// Input contains the parameters for a generation request.
// Nil FrameNum, SampleSteps, and GuideScale mean "use the task default",
// so an explicit zero still reaches the runtime; a negative Seed means
// "pick a random seed".
type Input struct {
	// Prompt is the text description for the video.
	Prompt string
	// Task is the generation mode.
	Task wan.Task
	// Size is the target resolution in "width*height" form.
	Size string
	// ImagePNG is the optional normalized source image.
	ImagePNG []byte
	// FrameNum is the number of frames to render (nil = task default).
	FrameNum *int
	// Seed is the random seed (negative = random).
	Seed int64
	// SampleSteps is the number of sampling steps (nil = task default).
	SampleSteps *int
	// GuideScale is the guidance scale (nil = task default).
	GuideScale *float64
}

// Output contains the result of a generation request.
type Output struct {
	// VideoID is the UUID assigned to the rendered video.
	VideoID string
	// VideoPath is the local path of the MP4 file.
	VideoPath string
	// VideoURL is the S3 URL if the video was published.
	VideoURL string
	// Task is the task the video was generated with.
	Task wan.Task
	// Seed is the seed actually used.
	Seed int64
}

// Service orchestrates video generation against the inference runtime.
// Model handles are loaded lazily per task and cached for the process
// lifetime; loads are single-flighted under the cache mutex.
type Service struct {
	engine    engine.Engine
	store     storage.Storage
	logger    *slog.Logger
	modelPath string
	deviceID  int
	seedFn    func() int64

	mu     sync.Mutex
	models map[wan.Task]engine.Model
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithModelPath sets the directory that holds the task checkpoints.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithDeviceID selects the GPU device models are loaded on.
func WithDeviceID(id int) Option {
	return func(s *Service) {
		s.deviceID = id
	}
}

// WithSeedSource overrides the random seed source. Useful for tests.
func WithSeedSource(fn func() int64) Option {
	return func(s *Service) {
		s.seedFn = fn
	}
}

// NewService creates a new generation Service.
func NewService(eng engine.Engine, store storage.Storage, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		engine:    eng,
		store:     store,
		logger:    logger,
		modelPath: "./models",
		seedFn:    rand.Int64,
		models:    make(map[wan.Task]engine.Model),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates the input, resolves defaults, renders the video through
// the runtime, and writes the MP4 to the output store.
func (s *Service) Generate(ctx context.Context, input Input) (*Output, error) {
	if !wan.IsValidTask(input.Task) {
		return nil, fmt.Errorf("%w: %s", wan.ErrUnsupportedTask, input.Task)
	}
	// Any size in the size table is accepted; the per-task trained lists
	// served by /sizes are informational.
	size, err := wan.SizeFor(input.Size)
	if err != nil {
		return nil, err
	}

	cfg, err := wan.ConfigFor(input.Task)
	if err != nil {
		return nil, err
	}

	if input.Task.IsImageToVideo() && len(input.ImagePNG) == 0 {
		return nil, ErrImageRequired
	}
	// t2v ignores any supplied image
	if !input.Task.AcceptsImage() {
		input.ImagePNG = nil
	}

	// Resolve defaults from the task config
	frameNum := cfg.FrameNum
	if input.FrameNum != nil {
		frameNum = *input.FrameNum
	}
	sampleSteps := cfg.SampleSteps
	if input.SampleSteps != nil {
		sampleSteps = *input.SampleSteps
	}
	guideScale := cfg.GuideScale
	if input.GuideScale != nil {
		guideScale = *input.GuideScale
	}
	seed := input.Seed
	if seed < 0 {
		seed = s.seedFn()
	}

	model, err := s.model(ctx, input.Task, cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("generating video",
		slog.String("task", string(input.Task)),
		slog.String("prompt", truncate(input.Prompt, 50)),
		slog.String("size", input.Size),
		slog.Int("frame_num", frameNum),
		slog.Int("sample_steps", sampleSteps),
		slog.Int64("seed", seed),
	)

	req := engine.GenerateRequest{
		Prompt:       input.Prompt,
		ImagePNG:     input.ImagePNG,
		Width:        size.Width,
		Height:       size.Height,
		FrameNum:     frameNum,
		Shift:        cfg.Shift,
		SampleSolver: engine.DefaultSolver,
		SampleSteps:  sampleSteps,
		GuideScale:   guideScale,
		Seed:         seed,
		FPS:          cfg.FPS,
		OffloadModel: true,
	}
	if input.Task.AcceptsImage() {
		req.MaxArea = size.Area()
	}

	video, err := model.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate video: %w", err)
	}

	videoID := uuid.NewString()
	name := videoID + ".mp4"

	path, err := s.store.SaveVideo(ctx, name, bytes.NewReader(video))
	if err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}

	out := &Output{
		VideoID:   videoID,
		VideoPath: path,
		Task:      input.Task,
		Seed:      seed,
	}

	// Publish to S3 when configured; a publish failure is logged but does
	// not fail the request since the local file is already served.
	url, err := s.store.Publish(ctx, name, bytes.NewReader(video))
	switch {
	case err == nil:
		out.VideoURL = url
	case errors.Is(err, storage.ErrS3NotConfigured):
		// Local-only deployment
	default:
		s.logger.Warn("failed to publish video",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("video generated",
		slog.String("video_id", videoID),
		slog.String("path", path),
	)

	return out, nil
}

// model returns the cached model handle for a task, loading it on first use.
// The lock is held across the load so concurrent requests for the same task
// trigger a single load.
func (s *Service) model(ctx context.Context, task wan.Task, cfg wan.Config) (engine.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.models[task]; ok {
		return m, nil
	}

	checkpointDir := filepath.Join(s.modelPath, task.CheckpointName())
	if _, err := os.Stat(checkpointDir); err != nil {
		return nil, fmt.Errorf("%w at %s", ErrCheckpointNotFound, checkpointDir)
	}

	s.logger.Info("initializing model",
		slog.String("task", string(task)),
		slog.String("checkpoint_dir", checkpointDir),
	)

	m, err := s.engine.Load(ctx, engine.LoadRequest{
		Task:              string(task),
		CheckpointDir:     checkpointDir,
		DeviceID:          s.deviceID,
		T5CPU:             cfg.T5CPU,
		ConvertModelDtype: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load model for task %s: %w", task, err)
	}

	s.models[task] = m

	s.logger.Info("model initialized",
		slog.String("task", string(task)),
	)

	return m, nil
}

// truncate shortens a string for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
