package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkshelf/internal/kv/kvtest"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// fakeS3 serves the subset of the S3 REST API the store uses: object
// get/put/delete and ListObjectsV2 over a path-style bucket.
type fakeS3 struct {
	mu    sync.Mutex
	state map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{state: make(map[string][]byte)} }

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.state {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.state[k]))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, b.String(), "application/xml"), nil
	}

	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.state[key] = body
		return response(http.StatusOK, "", ""), nil
	case http.MethodGet:
		body, ok := f.state[key]
		if !ok {
			return response(http.StatusNotFound, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`, "application/xml"), nil
		}
		return response(http.StatusOK, string(body), "application/json"), nil
	case http.MethodDelete:
		delete(f.state, key)
		return response(http.StatusNoContent, "", ""), nil
	}
	return response(http.StatusNotImplemented, "", ""), nil
}

func response(status int, body, contentType string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
		Header:        h,
	}
}

func newTestStore(t *testing.T, fake *fakeS3, prefix string) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "shelf",
		Endpoint:        "https://mock.s3.local",
		Prefix:          prefix,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) types.Store {
		return newTestStore(t, newFakeS3(), "")
	})
}

func TestPrefixNamespacesKeys(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(t, fake, "home/")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, types.CategoriesKey, []byte(`[]`)))

	fake.mu.Lock()
	_, ok := fake.state["home/categories"]
	fake.mu.Unlock()
	assert.True(t, ok)

	got, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.CategoriesKey, got[0].Name)
	assert.Equal(t, "2026-01-01T00:00:00Z", got[0].Metadata["last_modified"])
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, types.ErrBucketRequired)
}

func TestFromStoreConfig(t *testing.T) {
	cfg := FromStoreConfig(types.S3Config{Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000", Prefix: "p/", PathStyle: true})
	assert.Equal(t, Config{Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000", Prefix: "p/", PathStyle: true}, cfg)
}
