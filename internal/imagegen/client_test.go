package imagegen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/imagegen"
)

func TestClient_RetryWithBackoff(t *testing.T) {
	client := imagegen.NewClient("https://api.test.com/v1", "test-key", "test-model")

	callCount := 0
	err := client.RetryWithBackoff(func() error {
		callCount++
		if callCount < 3 {
			return assert.AnError
		}
		return nil
	}, 3)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestClient_RetryWithBackoff_Exhausted(t *testing.T) {
	client := imagegen.NewClient("https://api.test.com/v1", "test-key", "test-model")

	err := client.RetryWithBackoff(func() error {
		return assert.AnError
	}, 3)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 retries")
}

func TestClient_GenerateCharacter(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/predictions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body imagegen.PredictionIn
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, "http://cdn/photo.png", body.Input.MainFaceImage)
		assert.NotEmpty(t, body.Input.NegativePrompt)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	})
	mux.HandleFunc("/predictions/pred-1", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) < 2 {
			_, _ = w.Write([]byte(`{"id":"pred-1","status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"succeeded","output":["` + server.URL + `/files/out.png"]}`))
	})
	mux.HandleFunc("/files/out.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})

	client := imagegen.NewClient(server.URL, "test-key", "test-model")
	client.PollInterval = 5 * time.Millisecond

	data, err := client.GenerateCharacter(context.Background(), "http://cdn/photo.png", "wearing a space suit")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))
}

func TestClient_GenerateCharacter_PredictionFailed(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/predictions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pred-2","status":"starting"}`))
	})
	mux.HandleFunc("/predictions/pred-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pred-2","status":"failed","error":"NSFW content detected"}`))
	})

	client := imagegen.NewClient(server.URL, "test-key", "test-model")
	client.PollInterval = 5 * time.Millisecond

	_, err := client.GenerateCharacter(context.Background(), "http://cdn/photo.png", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "NSFW content detected")
}
