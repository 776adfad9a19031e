package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerCancelEndsOpenStreams(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opened := make(chan struct{})
	closed := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(opened)
		<-r.Context().Done()
		close(closed)
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := newHTTPServer(ctx, l.Addr().String(), h)
	go func() { _ = srv.Serve(l) }()

	go func() {
		resp, err := http.Get("http://" + l.Addr().String() + "/board/stream")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never opened")
	}

	cancel()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after cancel")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	assert.NoError(t, srv.Shutdown(shutdownCtx))
}
