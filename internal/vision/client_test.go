package vision_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/vision"
)

func TestClient_CountFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/detect", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[{"x":10,"y":20,"width":100,"height":120,"score":0.98},{"x":200,"y":20,"width":90,"height":110,"score":0.91}]}`))
	}))
	defer server.Close()

	client := vision.NewClient(server.URL, "test-key")
	count, err := client.CountFaces(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClient_CountFaces_NoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"faces":[]}`))
	}))
	defer server.Close()

	client := vision.NewClient(server.URL, "test-key")
	count, err := client.CountFaces(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestClient_CountFaces_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := vision.NewClient(server.URL, "test-key")
	_, err := client.CountFaces(context.Background(), []byte("image-bytes"))
	assert.Error(t, err)
}
