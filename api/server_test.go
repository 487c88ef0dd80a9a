package api

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/share"
	"github.com/moyoez/tunshare/types"
)

type stubTunnel struct {
	url    string
	mu     sync.Mutex
	closed bool
}

func (s *stubTunnel) URL() string { return s.url }

func (s *stubTunnel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubTunnel) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// stubProvider hands out numbered public URLs for the token "good" and rejects everything else.
type stubProvider struct {
	mu      sync.Mutex
	tunnels []*stubTunnel
}

func (p *stubProvider) open(ctx context.Context, port int, cred *types.Credential) (share.TunnelHandle, error) {
	if cred.Token != "good" {
		return nil, fmt.Errorf("%w: invalid authtoken", types.ErrTunnel)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t := &stubTunnel{url: fmt.Sprintf("https://share-%d.ngrok.app", len(p.tunnels)+1)}
	p.tunnels = append(p.tunnels, t)
	return t, nil
}

type fixture struct {
	root        string
	port        int
	coordinator *share.Coordinator
	handler     http.Handler
	provider    *stubProvider
}

func newFixture(t *testing.T, cred *types.Credential) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("bravo"), 0o644))

	f := &fixture{root: root, port: freePort(t), provider: &stubProvider{}}
	f.coordinator = share.New(share.Options{
		Port:       f.port,
		Credential: cred,
		OpenTunnel: f.provider.open,
		StartServer: func(port int, artifact *archive.Artifact, publicURL string) (share.DownloadServer, error) {
			srv, err := StartDownloadServer(port, artifact, publicURL)
			if err != nil {
				return nil, err
			}
			return srv, nil
		},
	})
	t.Cleanup(func() { _ = f.coordinator.Close() })

	f.handler = NewServer(ServerOptions{
		Root:     root,
		Archiver: archive.New(1 << 20),
		Sharer:   f.coordinator,
	}).Handler()
	return f
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBrowseListing(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/a.txt"`)
	assert.Contains(t, w.Body.String(), `href="/sub"`)

	w = f.do(http.MethodGet, "/sub")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/sub/b.txt"`)

	w = f.do(http.MethodGet, "/a.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a.txt")
	assert.Contains(t, w.Body.String(), "5 B")
}

func TestBrowseEscapesSpecialNames(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "C#notes.txt"), []byte("sharp"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "what?.txt"), []byte("query"), 0o644))

	w := f.do(http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/C%23notes.txt"`)
	assert.Contains(t, w.Body.String(), `href="/what%3F.txt"`)
	assert.NotContains(t, w.Body.String(), `href="/C#notes.txt"`)

	w = f.do(http.MethodGet, "/C%23notes.txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "C#notes.txt")
	assert.Contains(t, w.Body.String(), `action="/C%23notes.txt"`)

	w = f.do(http.MethodGet, "/what%3F.txt")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBrowseNotFound(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/missing.txt", "/../etc/passwd", "/%2e%2e/%2e%2e/etc/passwd", "/sub/..%5c..%5cetc"} {
		w := f.do(http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.NotContains(t, w.Body.String(), f.root, "internal paths never leak")
	}
	w := f.do(http.MethodDelete, "/a.txt")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareFolderLocalOnly(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/")
	require.Equal(t, http.StatusOK, w.Code)
	localURL := fmt.Sprintf("http://localhost:%d", f.port)
	assert.Contains(t, w.Body.String(), localURL)
	assert.Contains(t, w.Body.String(), "Local download link")

	resp, body := get(t, fmt.Sprintf("http://127.0.0.1:%d/download", f.port))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="demo.zip"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, []string{"a.txt", "sub/", "sub/b.txt"}, zipNames(t, []byte(body)))

	status := f.coordinator.Status()
	assert.Equal(t, types.SessionActive, status.State)
	assert.Equal(t, "demo.zip", status.ArtifactName)
	assert.Equal(t, localURL, status.LocalUrl)
	assert.Empty(t, status.PublicUrl)
}

func TestShareFileWithTunnelSupersedes(t *testing.T) {
	f := newFixture(t, &types.Credential{Token: "good"})

	w := f.do(http.MethodPost, "/sub")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://share-1.ngrok.app")

	w = f.do(http.MethodPost, "/a.txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://share-2.ngrok.app")
	assert.Contains(t, w.Body.String(), "Public download link")
	assert.NotContains(t, w.Body.String(), "https://share-1.ngrok.app")

	require.Len(t, f.provider.tunnels, 2)
	assert.True(t, f.provider.tunnels[0].isClosed(), "previous tunnel is closed")
	assert.False(t, f.provider.tunnels[1].isClosed())

	resp, body := get(t, fmt.Sprintf("http://127.0.0.1:%d/download", f.port))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alpha", body, "the port now serves the new artifact")
	assert.Equal(t, `attachment; filename="a.txt"`, resp.Header.Get("Content-Disposition"))

	require.NoError(t, f.coordinator.Close())
	assert.True(t, refused(f.port))
	assert.True(t, f.provider.tunnels[1].isClosed())
}

func TestShareTunnelFailureFallsBackToLocal(t *testing.T) {
	f := newFixture(t, &types.Credential{Token: "revoked"})

	w := f.do(http.MethodPost, "/a.txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf("http://localhost:%d", f.port))
	assert.Contains(t, w.Body.String(), "public tunnel could not be opened")
}

func TestSharePortInUse(t *testing.T) {
	f := newFixture(t, nil)
	blocker, err := StartDownloadServer(f.port, archive.NewArtifact("x", nil), "")
	require.NoError(t, err)
	defer blocker.Close()

	w := f.do(http.MethodPost, "/a.txt")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Could not start the download server")
	assert.Equal(t, types.SessionIdle, f.coordinator.Status().State)
}

func TestShareNotFound(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/../outside")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.SessionIdle, f.coordinator.Status().State)
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/a.txt").Code)

	w := f.do(http.MethodGet, "/_/status")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string              `json:"status"`
		Data   types.SessionStatus `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, types.SessionActive, body.Data.State)
	assert.Equal(t, "a.txt", body.Data.ArtifactName)
}

func TestHelperRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/_/qrcode?data=https%3A%2F%2Fshare-1.ngrok.app&size=120")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = f.do(http.MethodGet, "/_/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tunshare_"), "metrics are exported")
}

func TestLocalOnlyInterface(t *testing.T) {
	f := newFixture(t, nil)
	handler := NewServer(ServerOptions{
		Root:      f.root,
		Archiver:  archive.New(0),
		Sharer:    f.coordinator,
		LocalOnly: true,
	}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.8:41000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:41000"
	req.Header.Set("X-Forwarded-For", "10.0.0.8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShutdownBeforeStartDoesNotServe(t *testing.T) {
	port := freePort(t)
	server := NewServer(ServerOptions{Port: port, Root: t.TempDir(), Archiver: archive.New(0)})
	require.NoError(t, server.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
	assert.True(t, refused(port), "listener is released")
}
