// Package wan holds the static configuration tables for the Wan 2.2 model
// family: per-task generation defaults, the resolution table, and which
// resolutions each task supports. The model itself lives in the external
// inference runtime; this package only describes it.
package wan

import (
	"errors"
	"fmt"
	"strings"
)

// Static errors for task and size lookups.
var (
	// ErrUnsupportedTask is returned when a task is not in the config table.
	ErrUnsupportedTask = errors.New("wan: unsupported task")
	// ErrUnsupportedSize is returned when a size is not in the size table.
	ErrUnsupportedSize = errors.New("wan: unsupported size")
)

// Task identifies a generation mode of the Wan 2.2 model family.
type Task string

// Supported tasks.
const (
	// TaskT2V is text-to-video with the A14B checkpoint.
	TaskT2V Task = "t2v-A14B"
	// TaskI2V is image-to-video with the A14B checkpoint.
	TaskI2V Task = "i2v-A14B"
	// TaskTI2V is text+image-to-video with the 5B checkpoint.
	TaskTI2V Task = "ti2v-5B"
)

// IsImageToVideo returns true for tasks that require a source image.
func (t Task) IsImageToVideo() bool {
	return strings.HasPrefix(string(t), "i2v")
}

// AcceptsImage returns true for tasks that can consume a source image,
// whether required (i2v) or optional (ti2v).
func (t Task) AcceptsImage() bool {
	return strings.Contains(string(t), "i2v")
}

// CheckpointName returns the checkpoint directory name for this task,
// e.g. "Wan2.2-TI2V-5B".
func (t Task) CheckpointName() string {
	return "Wan2.2-" + strings.ToUpper(string(t))
}

// Size is a video resolution in pixels.
type Size struct {
	Width  int
	Height int
}

// Area returns the pixel area of the size.
func (s Size) Area() int {
	return s.Width * s.Height
}

// String returns the size in "width*height" form.
func (s Size) String() string {
	return fmt.Sprintf("%d*%d", s.Width, s.Height)
}

// Config holds the generation defaults for one task.
type Config struct {
	// FrameNum is the default number of frames per clip.
	FrameNum int
	// SampleSteps is the default number of diffusion sampling steps.
	SampleSteps int
	// GuideScale is the default classifier-free guidance scale.
	GuideScale float64
	// Shift is the noise schedule shift passed to the sampler.
	Shift float64
	// FPS is the frame rate of the rendered video.
	FPS int
	// T5CPU keeps the T5 text encoder on CPU when loading the model.
	T5CPU bool
}

// configs is the per-task default table, mirroring the published
// Wan 2.2 generation configs.
var configs = map[Task]Config{
	TaskT2V:  {FrameNum: 81, SampleSteps: 40, GuideScale: 4.0, Shift: 12.0, FPS: 16},
	TaskI2V:  {FrameNum: 81, SampleSteps: 40, GuideScale: 3.5, Shift: 5.0, FPS: 16},
	TaskTI2V: {FrameNum: 121, SampleSteps: 50, GuideScale: 5.0, Shift: 5.0, FPS: 24, T5CPU: true},
}

// sizes maps the "width*height" wire form to its dimensions.
var sizes = map[string]Size{
	"720*1280": {Width: 720, Height: 1280},
	"1280*720": {Width: 1280, Height: 720},
	"480*832":  {Width: 480, Height: 832},
	"832*480":  {Width: 832, Height: 480},
	"704*1280": {Width: 704, Height: 1280},
	"1280*704": {Width: 1280, Height: 704},
}

// supportedSizes lists, per task, the sizes the checkpoint was trained for.
// The lists are informational; generation accepts any size in the size table.
var supportedSizes = map[Task][]string{
	TaskT2V:  {"720*1280", "1280*720", "480*832", "832*480"},
	TaskI2V:  {"720*1280", "1280*720", "480*832", "832*480"},
	TaskTI2V: {"1280*704", "704*1280"},
}

// DefaultSize is the size assumed when a request omits one.
const DefaultSize = "1280*704"

// Tasks returns the list of supported tasks in a stable order.
func Tasks() []Task {
	return []Task{TaskT2V, TaskI2V, TaskTI2V}
}

// TaskNames returns the supported task identifiers as strings.
func TaskNames() []string {
	tasks := Tasks()
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = string(t)
	}
	return names
}

// ConfigFor returns the generation defaults for a task.
func ConfigFor(task Task) (Config, error) {
	cfg, ok := configs[task]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedTask, task)
	}
	return cfg, nil
}

// IsValidTask returns true if the task is in the config table.
func IsValidTask(task Task) bool {
	_, ok := configs[task]
	return ok
}

// SizeFor returns the dimensions for a "width*height" size string.
func SizeFor(size string) (Size, error) {
	s, ok := sizes[size]
	if !ok {
		return Size{}, fmt.Errorf("%w: %s", ErrUnsupportedSize, size)
	}
	return s, nil
}

// SupportedSizes returns the size strings a task supports.
func SupportedSizes(task Task) ([]string, error) {
	names, ok := supportedSizes[task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTask, task)
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}
