// Package share owns the single live share session: one artifact, one tunnel, one download server.
package share

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/metrics"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// TunnelHandle is an opened tunnel.
type TunnelHandle interface {
	URL() string
	Close() error
}

// TunnelOpener opens a tunnel to localhost:localPort.
type TunnelOpener func(ctx context.Context, localPort int, cred *types.Credential) (TunnelHandle, error)

// DownloadServer is a running single-artifact server.
type DownloadServer interface {
	Port() int
	Close() error
}

// ServerStarter binds a download server on port serving artifact. It must return only once the port is bound.
type ServerStarter func(port int, artifact *archive.Artifact, publicURL string) (DownloadServer, error)

// Notifier receives session lifecycle events.
type Notifier interface {
	Broadcast(notification *types.Notification)
}

// Options wires the coordinator to its collaborators.
type Options struct {
	Port        int               // fixed local download/tunnel port
	Credential  *types.Credential // nil means local-only sharing
	OpenTunnel  TunnelOpener
	StartServer ServerStarter
	Notifier    Notifier
}

// Session is the live pairing of one artifact with one tunnel and one download server.
type Session struct {
	ID        string
	Artifact  *archive.Artifact
	Tunnel    TunnelHandle // nil when local only
	Server    DownloadServer
	PublicURL string
	LocalURL  string
	StartedAt time.Time
}

// Result is what a share request gets back.
type Result struct {
	SessionID string
	PublicURL string // "" when no tunnel could be opened
	LocalURL  string
	TunnelErr error // set when a credential exists but the tunnel failed
}

// URL is the link to present: the public one when available.
func (r *Result) URL() string {
	if r.PublicURL != "" {
		return r.PublicURL
	}
	return r.LocalURL
}

// Coordinator serializes session startup. Only it binds the download port.
type Coordinator struct {
	opts Options
	sem  chan struct{} // single-flight for StartSession and Close

	mu     sync.RWMutex
	state  types.SessionState
	active *Session
}

// New returns an idle coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{
		opts:  opts,
		sem:   make(chan struct{}, 1),
		state: types.SessionIdle,
	}
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() {
	<-c.sem
}

// StartSession replaces the active session with a new one serving artifact and returns its URLs.
// The coordinator owns artifact from here on: it is released on failure or when superseded.
// Calls are serialized; a caller waits for an in-flight start to finish before its own teardown.
func (c *Coordinator) StartSession(ctx context.Context, artifact *archive.Artifact) (*Result, error) {
	if artifact == nil {
		return nil, errors.New("nil artifact")
	}
	if err := c.acquire(ctx); err != nil {
		artifact.Release()
		return nil, err
	}
	defer c.release()

	c.teardownLocked("superseded")

	c.setState(types.SessionStarting)
	sess := &Session{
		ID:        tool.GenerateRandomUUID(),
		Artifact:  artifact,
		StartedAt: time.Now(),
	}
	result := &Result{SessionID: sess.ID}

	if c.opts.Credential.Valid() && c.opts.OpenTunnel != nil {
		handle, err := c.opts.OpenTunnel(ctx, c.opts.Port, c.opts.Credential)
		if err != nil {
			if !errors.Is(err, types.ErrTunnel) {
				err = fmt.Errorf("%w: %w", types.ErrTunnel, err)
			}
			result.TunnelErr = err
			metrics.RecordTunnelFailure()
			tool.DefaultLogger.Warnf("[Share] Tunnel unavailable, serving locally only: %v", err)
		} else {
			sess.Tunnel = handle
			sess.PublicURL = handle.URL()
		}
	}

	server, err := c.opts.StartServer(c.opts.Port, artifact, sess.PublicURL)
	if err != nil {
		closeTunnel(sess)
		artifact.Release()
		c.setState(types.SessionIdle)
		if !errors.Is(err, types.ErrPortBind) {
			err = fmt.Errorf("%w: %w", types.ErrPortBind, err)
		}
		tool.DefaultLogger.Errorf("[Share] Failed to start download server: %v", err)
		return nil, err
	}
	sess.Server = server
	sess.LocalURL = tool.BuildLocalURL(server.Port())
	result.PublicURL = sess.PublicURL
	result.LocalURL = sess.LocalURL

	c.mu.Lock()
	c.active = sess
	c.state = types.SessionActive
	c.mu.Unlock()

	metrics.RecordSessionStarted(sess.PublicURL != "")
	metrics.SetSessionActive(true)
	tool.DefaultLogger.Infof("[Share] Session %s active: %s (%s) at %s", sess.ID, artifact.Name, tool.HumanSize(artifact.Size), result.URL())
	c.notify(&types.Notification{
		Type:    types.NotifyTypeSessionStarted,
		Title:   "Share Started",
		Message: artifact.Name,
		Data: map[string]any{
			"sessionId": sess.ID,
			"name":      artifact.Name,
			"size":      artifact.Size,
			"publicUrl": sess.PublicURL,
			"localUrl":  sess.LocalURL,
		},
	})
	return result, nil
}

// Close tears down the active session, if any. Used on shutdown; safe to call repeatedly.
func (c *Coordinator) Close() error {
	c.sem <- struct{}{}
	defer c.release()
	c.teardownLocked("shutdown")
	return nil
}

// Status returns a snapshot of the session slot.
func (c *Coordinator) Status() types.SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status := types.SessionStatus{State: c.state}
	if c.active != nil {
		startedAt := c.active.StartedAt
		status.SessionId = c.active.ID
		status.ArtifactName = c.active.Artifact.Name
		status.ArtifactSize = c.active.Artifact.Size
		status.PublicUrl = c.active.PublicURL
		status.LocalUrl = c.active.LocalURL
		status.StartedAt = &startedAt
	}
	return status
}

// teardownLocked closes the active session. Caller holds sem. Close failures are logged, never returned.
func (c *Coordinator) teardownLocked(reason string) {
	c.mu.Lock()
	prev := c.active
	if prev == nil {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.state = types.SessionClosing
	c.mu.Unlock()

	closeTunnel(prev)
	if prev.Server != nil {
		if err := prev.Server.Close(); err != nil {
			tool.DefaultLogger.Warnf("[Share] Failed to close download server of session %s: %v", prev.ID, err)
		}
	}
	prev.Artifact.Release()

	c.setState(types.SessionIdle)
	metrics.SetSessionActive(false)
	tool.DefaultLogger.Infof("[Share] Session %s closed (%s)", prev.ID, reason)
	c.notify(&types.Notification{
		Type:    types.NotifyTypeSessionClosed,
		Title:   "Share Closed",
		Message: prev.Artifact.Name,
		Data: map[string]any{
			"sessionId": prev.ID,
			"reason":    reason,
		},
	})
}

func closeTunnel(sess *Session) {
	if sess.Tunnel == nil {
		return
	}
	if err := sess.Tunnel.Close(); err != nil {
		tool.DefaultLogger.Warnf("[Share] Failed to close tunnel of session %s: %v", sess.ID, err)
	}
}

func (c *Coordinator) setState(state types.SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Coordinator) notify(notification *types.Notification) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Broadcast(notification)
	}
}
