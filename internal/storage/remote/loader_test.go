package remote_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itihasa/kgq/internal/storage/remote"
	"github.com/stretchr/testify/require"
)

func bundleTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0o600}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestSource_Load_FetchesAndExtracts(t *testing.T) {
	bundle := bundleTarGz(t, map[string]string{
		"entities.yaml": "- id: person_a\n  canonical_name: a\n  kind: PERSON\n  aliases: [a]\n",
		"events.yaml":   "- id: E1\n  type: KILL\n  tier: MACRO\n  sentence: x\n  participants: [person_a]\n",
		"edges.yaml":    "- source: person_a\n  relation: PARTICIPATED_IN\n  target: E1\n  evidence: x\n",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bundle)
	}))
	defer srv.Close()

	src := remote.New(srv.URL)
	store, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.EntityCount())
}

func TestSource_Load_RetriesThenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := remote.New(srv.URL)
	src.MaxRetries = 1
	_, err := src.Load(context.Background())
	require.Error(t, err)
}

func TestSource_Load_PermanentErrorOnNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := remote.New(srv.URL)
	src.MaxRetries = 5
	_, err := src.Load(context.Background())
	require.Error(t, err)
}
