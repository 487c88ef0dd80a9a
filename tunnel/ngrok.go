package tunnel

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"
)

// NgrokProvider forwards through ngrok.
type NgrokProvider struct{}

type ngrokForwarding struct {
	ngrok.Forwarder
	cancel context.CancelFunc
}

func (f *ngrokForwarding) Close() error {
	defer f.cancel()
	return f.Forwarder.Close()
}

// Forward starts an ngrok HTTP endpoint forwarding to backend. ctx bounds the connect only;
// the forwarder lives until Close.
func (NgrokProvider) Forward(ctx context.Context, backend string, token string) (Forwarding, error) {
	backendURL, err := url.Parse(backend)
	if err != nil {
		return nil, fmt.Errorf("invalid backend %q: %v", backend, err)
	}

	fwdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	type result struct {
		fwd ngrok.Forwarder
		err error
	}
	done := make(chan result, 1)
	go func() {
		fwd, err := ngrok.ListenAndForward(fwdCtx, backendURL, config.HTTPEndpoint(), ngrok.WithAuthtoken(token))
		done <- result{fwd: fwd, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			cancel()
			return nil, r.err
		}
		return &ngrokForwarding{Forwarder: r.fwd, cancel: cancel}, nil
	case <-ctx.Done():
		cancel()
		go func() {
			if r := <-done; r.err == nil {
				_ = r.fwd.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Connect opens a bare ngrok session.
func (NgrokProvider) Connect(ctx context.Context, token string) (io.Closer, error) {
	return ngrok.Connect(ctx, ngrok.WithAuthtoken(token))
}
