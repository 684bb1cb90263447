package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storybook-service/internal/validation"
)

// UploadState is the lifecycle of one upload attempt.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadInProgress
	UploadComplete
	UploadInvalid
	UploadError
)

// ErrUploadInFlight is returned when an attempt starts while another is
// still running. One upload at a time.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// ChecklistItem is one row of the validation checklist shown to the
// user after an upload attempt.
type ChecklistItem struct {
	Label  string
	Passed bool
	Detail string
}

// PhotoUploader is the piece of the API client the flow depends on.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, filename string, data []byte, contentType string) (*UploadResult, error)
}

// UploadFlow drives a single-photo upload: local gates first, then the
// server round trip, then the validation checklist. Each attempt starts
// from a clean slate.
type UploadFlow struct {
	uploader        PhotoUploader
	completionDelay time.Duration
	onComplete      func(url string)

	mu        sync.Mutex
	inFlight  bool
	state     UploadState
	errMsg    string
	checklist []ChecklistItem
	url       string
}

func NewUploadFlow(uploader PhotoUploader, onComplete func(url string)) *UploadFlow {
	return &UploadFlow{
		uploader:        uploader,
		completionDelay: time.Second,
		onComplete:      onComplete,
	}
}

// State returns the current state with its user-facing details.
func (f *UploadFlow) State() (UploadState, string, []ChecklistItem, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	checklist := make([]ChecklistItem, len(f.checklist))
	copy(checklist, f.checklist)
	return f.state, f.errMsg, checklist, f.url
}

// Upload runs one attempt. Files that fail the size or type gate are
// rejected locally without touching the network. A photo the server
// judges invalid leaves the flow in UploadInvalid with the checklist
// populated; only a valid photo with a stored URL completes the flow.
func (f *UploadFlow) Upload(ctx context.Context, filename string, data []byte) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrUploadInFlight
	}
	f.inFlight = true
	f.reset()
	f.state = UploadInProgress
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	if int64(len(data)) >= validation.MaxUploadBytes {
		msg := fmt.Sprintf("File is too large (max %dMB).", validation.MaxUploadBytes>>20)
		f.fail(UploadError, msg)
		return errors.New(msg)
	}

	contentType := http.DetectContentType(data)
	if !validation.IsAllowedMIMEType(contentType) {
		msg := "Please upload a JPG or PNG image."
		f.fail(UploadError, msg)
		return errors.New(msg)
	}

	result, err := f.uploader.UploadPhoto(ctx, filename, data, contentType)
	if err != nil {
		f.fail(UploadError, "Upload failed. Please try again.")
		return err
	}

	checklist := buildChecklist(result.Checks)

	f.mu.Lock()
	f.checklist = checklist
	f.mu.Unlock()

	if !result.Valid || result.URL == "" {
		reason := result.Reason
		if reason == "" {
			reason = "Photo did not pass the quality checks."
		}
		f.fail(UploadInvalid, reason)
		return nil
	}

	// Brief pause so the user sees the checks pass before moving on.
	select {
	case <-time.After(f.completionDelay):
	case <-ctx.Done():
		f.fail(UploadError, "Upload canceled.")
		return ctx.Err()
	}

	f.mu.Lock()
	f.state = UploadComplete
	f.url = result.URL
	f.mu.Unlock()

	if f.onComplete != nil {
		f.onComplete(result.URL)
	}
	return nil
}

// reset clears the previous attempt. Caller holds the lock.
func (f *UploadFlow) reset() {
	f.state = UploadIdle
	f.errMsg = ""
	f.checklist = nil
	f.url = ""
}

func (f *UploadFlow) fail(state UploadState, msg string) {
	f.mu.Lock()
	f.state = state
	f.errMsg = msg
	f.mu.Unlock()
}

func buildChecklist(checks *ValidationChecks) []ChecklistItem {
	if checks == nil {
		return nil
	}

	return []ChecklistItem{
		{
			Label:  "Single Face Detected",
			Passed: checks.FaceDetected,
			Detail: fmt.Sprintf("%d face(s)", checks.FaceCount),
		},
		{
			Label:  "Resolution (>500px)",
			Passed: checks.IsHighRes,
			Detail: checks.Resolution,
		},
		{
			Label:  "Sharpness (Not Blurry)",
			Passed: checks.IsSharp,
			Detail: fmt.Sprintf("Score: %d", checks.BlurScore),
		},
	}
}
