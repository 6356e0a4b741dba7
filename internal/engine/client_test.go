package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient("")
	if err == nil {
		t.Error("expected error for missing base URL")
	}
	if !errors.Is(err, ErrBaseURLRequired) {
		t.Errorf("expected ErrBaseURLRequired, got %v", err)
	}
}

func TestNewClient_Success(t *testing.T) {
	client, err := NewClient("http://localhost:9090")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestLoad_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/load" {
			t.Errorf("expected /load, got %s", r.URL.Path)
		}

		var req loadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if req.Task != "ti2v-5B" {
			t.Errorf("expected task ti2v-5B, got %s", req.Task)
		}
		if req.CheckpointDir != "/models/Wan2.2-TI2V-5B" {
			t.Errorf("unexpected checkpoint dir %s", req.CheckpointDir)
		}
		if !req.T5CPU {
			t.Error("expected t5_cpu to be set")
		}

		_ = json.NewEncoder(w).Encode(loadResponse{ModelID: "model-1"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model, err := client.Load(context.Background(), LoadRequest{
		Task:              "ti2v-5B",
		CheckpointDir:     "/models/Wan2.2-TI2V-5B",
		T5CPU:             true,
		ConvertModelDtype: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model == nil {
		t.Fatal("expected non-nil model")
	}
}

func TestLoad_RuntimeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(loadResponse{Error: "checkpoint not found"})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)

	_, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("expected ErrLoadFailed, got %v", err)
	}
}

func TestLoad_NoModelID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(loadResponse{})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)

	_, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if !errors.Is(err, ErrNoModelIDReturned) {
		t.Errorf("expected ErrNoModelIDReturned, got %v", err)
	}
}

func TestLoad_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(loadResponse{ModelID: "model-1"})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, WithBaseBackoff(time.Millisecond))

	_, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestLoad_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, WithBaseBackoff(time.Millisecond))

	_, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestLoad_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, WithMaxRetries(1), WithBaseBackoff(time.Millisecond))

	_, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	videoBytes := []byte("fake-mp4-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/load":
			_ = json.NewEncoder(w).Encode(loadResponse{ModelID: "model-1"})
		case "/generate":
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			if req.ModelID != "model-1" {
				t.Errorf("expected model-1, got %s", req.ModelID)
			}
			if req.Prompt != "a cat surfing" {
				t.Errorf("unexpected prompt %q", req.Prompt)
			}
			if req.SampleSolver != DefaultSolver {
				t.Errorf("expected solver %q, got %q", DefaultSolver, req.SampleSolver)
			}
			if req.ImageBase64 != base64.StdEncoding.EncodeToString([]byte("png-data")) {
				t.Errorf("unexpected image payload %q", req.ImageBase64)
			}
			if req.Seed != 42 {
				t.Errorf("expected seed 42, got %d", req.Seed)
			}
			_ = json.NewEncoder(w).Encode(generateResponse{
				VideoBase64: base64.StdEncoding.EncodeToString(videoBytes),
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	model, err := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	video, err := model.Generate(context.Background(), GenerateRequest{
		Prompt:      "a cat surfing",
		ImagePNG:    []byte("png-data"),
		Width:       1280,
		Height:      704,
		FrameNum:    121,
		Shift:       5.0,
		SampleSteps: 50,
		GuideScale:  5.0,
		Seed:        42,
		FPS:         24,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(video) != string(videoBytes) {
		t.Errorf("expected %q, got %q", videoBytes, video)
	}
}

func TestGenerate_RuntimeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/load":
			_ = json.NewEncoder(w).Encode(loadResponse{ModelID: "model-1"})
		case "/generate":
			_ = json.NewEncoder(w).Encode(generateResponse{Error: "CUDA out of memory"})
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	model, _ := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})

	_, err := model.Generate(context.Background(), GenerateRequest{Prompt: "a cat"})
	if !errors.Is(err, ErrGenerateFailed) {
		t.Errorf("expected ErrGenerateFailed, got %v", err)
	}
}

func TestGenerate_DoesNotRetry(t *testing.T) {
	var generateCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/load":
			_ = json.NewEncoder(w).Encode(loadResponse{ModelID: "model-1"})
		case "/generate":
			generateCalls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, WithBaseBackoff(time.Millisecond))
	model, _ := client.Load(context.Background(), LoadRequest{Task: "ti2v-5B"})

	_, err := model.Generate(context.Background(), GenerateRequest{Prompt: "a cat"})
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
	if got := generateCalls.Load(); got != 1 {
		t.Errorf("expected 1 generate call, got %d", got)
	}
}
