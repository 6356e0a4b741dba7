package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/wanserve/wan22-api/internal/generate"
	"github.com/wanserve/wan22-api/internal/media"
	"github.com/wanserve/wan22-api/internal/wan"
)

// maxUploadBytes bounds the in-memory portion of a multipart upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// serviceName is reported by the root metadata endpoint.
const serviceName = "Wan 2.2 Video Generation API"

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *generate.Service
	validator *validator.Validate
	logger    *slog.Logger
	modelType string
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithModelType sets the default task used when a request omits one.
func WithModelType(task string) HandlerOption {
	return func(h *Handlers) {
		h.modelType = task
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *generate.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
		modelType: string(wan.TaskTI2V),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root handles GET / requests with service metadata.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Status:         "healthy",
		Message:        serviceName,
		ModelType:      h.modelType,
		AvailableTasks: wan.TaskNames(),
	})
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// Tasks handles GET /tasks requests.
func (h *Handlers) Tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TasksResponse{
		AvailableTasks: wan.TaskNames(),
		CurrentTask:    h.modelType,
	})
}

// Sizes handles GET /sizes/{task} requests.
func (h *Handlers) Sizes(w http.ResponseWriter, r *http.Request) {
	task := wan.Task(r.PathValue("task"))

	sizes, err := wan.SupportedSizes(task)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown task: %s", task), "UNSUPPORTED_TASK")
		return
	}

	writeJSON(w, http.StatusOK, SizesResponse{
		Task:           string(task),
		SupportedSizes: sizes,
	})
}

// Generate handles POST /generate requests. It accepts a multipart form
// with the prompt, optional source image, and sampling parameters, and
// responds with the rendered MP4 file.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseGenerateForm(r)
	if err != nil {
		h.logger.Warn("failed to parse generate form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_FORM")
		return
	}

	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	imagePNG, err := h.readImageUpload(r)
	if err != nil {
		h.logger.Warn("failed to read image upload",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_IMAGE")
		return
	}

	out, err := h.service.Generate(r.Context(), generate.Input{
		Prompt:      form.Prompt,
		Task:        wan.Task(form.Task),
		Size:        form.Size,
		ImagePNG:    imagePNG,
		FrameNum:    form.FrameNum,
		Seed:        form.Seed,
		SampleSteps: form.SampleSteps,
		GuideScale:  form.GuideScale,
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	h.logger.Info("serving generated video",
		slog.String("video_id", out.VideoID),
		slog.String("task", string(out.Task)),
		slog.Int64("seed", out.Seed),
	)

	if out.VideoURL != "" {
		w.Header().Set("X-Video-Url", out.VideoURL)
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "wan_video_"+out.VideoID+".mp4"))
	http.ServeFile(w, r, out.VideoPath)
}

// parseGenerateForm extracts and converts the multipart form fields.
func (h *Handlers) parseGenerateForm(r *http.Request) (*generateForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	form := &generateForm{
		Prompt: r.FormValue("prompt"),
		Task:   r.FormValue("task"),
		Size:   r.FormValue("size"),
		Seed:   -1,
	}
	if form.Task == "" {
		form.Task = h.modelType
	}
	if form.Size == "" {
		form.Size = wan.DefaultSize
	}

	if v := r.FormValue("frame_num"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid frame_num %q", v)
		}
		form.FrameNum = &n
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", v)
		}
		form.Seed = seed
	}
	if v := r.FormValue("sample_steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid sample_steps %q", v)
		}
		form.SampleSteps = &n
	}
	if v := r.FormValue("guide_scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid guide_scale %q", v)
		}
		form.GuideScale = &scale
	}

	return form, nil
}

// readImageUpload reads the optional image file and normalizes it to PNG.
// Returns nil bytes when no image was uploaded.
func (h *Handlers) readImageUpload(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image upload: %w", err)
	}

	normalized, err := media.NormalizeImage(data)
	if err != nil {
		return nil, err
	}

	h.logger.Info("loaded input image",
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
	)

	return normalized, nil
}

// writeGenerateError maps service errors to HTTP responses. Validation
// failures are 400s; everything the model or runtime raises is a 500 with
// the underlying message, matching the catch-all contract of the API.
func (h *Handlers) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wan.ErrUnsupportedTask):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_TASK")
	case errors.Is(err, wan.ErrUnsupportedSize):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_SIZE")
	case errors.Is(err, generate.ErrImageRequired):
		writeError(w, http.StatusBadRequest, err.Error(), "IMAGE_REQUIRED")
	default:
		h.logger.Error("video generation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Video generation failed: %s", err.Error()), "GENERATION_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
