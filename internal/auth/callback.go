package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// callbackResult is what the redirect callback delivered: either an
// authorization code or an error reported by the authorization server.
type callbackResult struct {
	Code     string
	State    string
	Error    string
	ErrorDsc string
}

// callbackServer is a single-use local listener that captures exactly one
// redirect callback and then stops accepting connections. The bound port is
// a shared local resource, so the listener never outlives the flow that
// started it.
type callbackServer struct {
	addr          string
	path          string
	expectedState string
	certFile      string
	keyFile       string

	server   *http.Server
	listener net.Listener
	resultCh chan callbackResult
	errCh    chan error
	once     sync.Once
	stopOnce sync.Once
}

func newCallbackServer(addr, path, expectedState, certFile, keyFile string) *callbackServer {
	return &callbackServer{
		addr:          addr,
		path:          path,
		expectedState: expectedState,
		certFile:      certFile,
		keyFile:       keyFile,
		resultCh:      make(chan callbackResult, 1),
		errCh:         make(chan error, 1),
	}
}

// start binds the listener and begins serving in the background.
func (s *callbackServer) start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind callback listener on %s: %w", s.addr, err)
	}

	if s.certFile != "" {
		cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("load TLS key pair: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handle)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()
	return nil
}

// wait blocks until one callback arrives, the server fails, the timeout
// elapses, or the context is cancelled.
func (s *callbackServer) wait(ctx context.Context, timeout time.Duration) (callbackResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-s.resultCh:
		return res, nil
	case err := <-s.errCh:
		return callbackResult{}, err
	case <-timer.C:
		return callbackResult{}, &AuthorizationTimeoutError{Wait: timeout}
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

func (s *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	var first bool
	s.once.Do(func() {
		first = true
		s.process(w, r)
	})
	if !first {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}
}

func (s *callbackServer) process(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	q := r.URL.Query()
	res := callbackResult{
		Code:     q.Get("code"),
		State:    q.Get("state"),
		Error:    q.Get("error"),
		ErrorDsc: q.Get("error_description"),
	}

	switch {
	case res.Error != "":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Authorization failed: %s. You may close this tab.\n", res.Error)
	case res.State != s.expectedState:
		// Reject forged callbacks but still deliver the result so the
		// waiting flow aborts instead of timing out.
		http.Error(w, "state mismatch", http.StatusBadRequest)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Authorization complete. You may close this tab.")
	}

	select {
	case s.resultCh <- res:
	default:
	}
}

// stop closes the listener and shuts the server down. Safe to call more
// than once.
func (s *callbackServer) stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}
