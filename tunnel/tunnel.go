// Package tunnel exposes the local download port through a tunnel provider.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// Forwarding is one live provider tunnel.
type Forwarding interface {
	URL() string
	Close() error
}

// Provider is the external tunnelling service.
type Provider interface {
	// Forward publishes backend (e.g. http://localhost:3004) and returns the live tunnel.
	Forward(ctx context.Context, backend string, token string) (Forwarding, error)
	// Connect opens a bare provider session, used only to validate a token.
	Connect(ctx context.Context, token string) (io.Closer, error)
}

// Client opens tunnels for the share coordinator and validates tokens for the auth command.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient returns a client; timeout bounds Open and Authenticate when the caller's ctx has no deadline.
func NewClient(provider Provider, timeout time.Duration) *Client {
	return &Client{provider: provider, timeout: timeout}
}

// Handle is an opened tunnel. Close is idempotent.
type Handle struct {
	url       string
	fwd       Forwarding
	closeOnce sync.Once
	closeErr  error
}

// URL is the public URL of the tunnel.
func (h *Handle) URL() string {
	if h == nil {
		return ""
	}
	return h.url
}

// Close shuts the tunnel down; later calls are no-ops and return the first result.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closeErr = h.fwd.Close()
		if h.closeErr != nil {
			h.closeErr = fmt.Errorf("%w: close %s: %v", types.ErrTunnel, h.url, h.closeErr)
		}
		tool.DefaultLogger.Debugf("[Tunnel] Closed %s", h.url)
	})
	return h.closeErr
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Open forwards localhost:localPort to a public URL. Every failure is types.ErrTunnel.
func (c *Client) Open(ctx context.Context, localPort int, cred *types.Credential) (*Handle, error) {
	if !cred.Valid() {
		return nil, fmt.Errorf("%w: %w", types.ErrTunnel, types.ErrNoCredential)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	backend := "http://localhost:" + strconv.Itoa(localPort)
	fwd, err := c.provider.Forward(ctx, backend, cred.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrTunnel, err)
	}
	url := fwd.URL()
	if url == "" {
		_ = fwd.Close()
		return nil, fmt.Errorf("%w: provider returned no url", types.ErrTunnel)
	}
	tool.DefaultLogger.Infof("[Tunnel] %s -> %s", url, backend)
	return &Handle{url: url, fwd: fwd}, nil
}

// Authenticate connects and disconnects once to check token. Failure is types.ErrFailedAuth.
func (c *Client) Authenticate(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", types.ErrFailedAuth)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sess, err := c.provider.Connect(ctx, token)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out contacting provider", types.ErrFailedAuth)
		}
		return fmt.Errorf("%w: please check your auth token if it's correct: %v", types.ErrFailedAuth, err)
	}
	if err := sess.Close(); err != nil {
		tool.DefaultLogger.Debugf("[Tunnel] Failed to close auth session: %v", err)
	}
	return nil
}

// Login validates token with the provider and only then stores it at credPath.
// A rejected token leaves any existing credential file untouched.
func (c *Client) Login(ctx context.Context, token, credPath string) error {
	if err := c.Authenticate(ctx, token); err != nil {
		return err
	}
	return tool.SaveCredential(credPath, &types.Credential{Token: token})
}
