package gcs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type uploadLog struct {
	mu     sync.Mutex
	path   string
	query  string
	bodies []string
}

func fakeGCS(t *testing.T, status int) (*httptest.Server, *uploadLog) {
	t.Helper()
	log := &uploadLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		log.path = r.URL.Path
		log.query = r.URL.RawQuery
		log.bodies = append(log.bodies, string(body))
		log.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"bucket":"metrics-bucket","name":"exports/website_metrics.csv","size":"16"}`)
			return
		}
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"denied"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func TestPutObjectUploadsToBucket(t *testing.T) {
	t.Parallel()

	srv, log := fakeGCS(t, http.StatusOK)
	store, err := Open(context.Background(),
		Config{Bucket: "metrics-bucket", Metadata: map[string]string{"session_id": "abc"}},
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	uri, err := store.PutObject(context.Background(), "exports/website_metrics.csv", "text/csv",
		bytes.NewBufferString("url,status_code\n"))
	require.NoError(t, err)
	require.Equal(t, "gs://metrics-bucket/exports/website_metrics.csv", uri)

	log.mu.Lock()
	defer log.mu.Unlock()
	require.Contains(t, log.path, "/b/metrics-bucket/o")
	require.NotEmpty(t, log.bodies)
	last := log.bodies[len(log.bodies)-1]
	require.True(t, strings.Contains(last, "url,status_code"), last)
	require.Contains(t, last, "session_id")
}

func TestPutObjectSurfacesServerError(t *testing.T) {
	t.Parallel()

	srv, _ := fakeGCS(t, http.StatusForbidden)
	store, err := Open(context.Background(), Config{Bucket: "metrics-bucket"},
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.PutObject(context.Background(), "denied.csv", "text/csv", bytes.NewBufferString("x"))
	require.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "  ", "text/csv", bytes.NewBufferString("x"))
	require.ErrorContains(t, err, "path is required")
	require.NoError(t, store.Close())
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	require.ErrorContains(t, err, "bucket name is required")
}
