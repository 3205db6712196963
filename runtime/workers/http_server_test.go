package workers

import (
	"chat-relay/observability"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerWorker_Serves_Until_Canceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	worker := NewHTTPServerWorker(log, listener.Addr().String(), mux, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Serve(ctx, listener) }()

	// When the server is called
	var body []byte
	req.Eventually(func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return true
	}, time.Second, 10*time.Millisecond)

	// Then it answers
	req.Equal("pong", string(body))

	// When the context is canceled
	cancel()

	// Then the worker returns without error
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server worker did not stop")
	}
}

func TestHealthMonitoringWorker_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	worker := NewHealthMonitoringWorker(log, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
}

func TestHealthMonitoringWorker_Records_Process_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := observability.NewRelayMonitor(log)
	worker := NewHealthMonitoringWorker(log, monitor, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))

	process := monitor.Snapshot().Process
	req.Equal(int32(os.Getpid()), process.PID)
	req.Positive(process.Goroutines)
	req.NotEmpty(process.SampledAt)
}

func TestHTTPServerWorker_Listen_Fails_On_Busy_Address(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given an address already taken
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer busy.Close()
	worker := NewHTTPServerWorker(log, busy.Addr().String(), http.NewServeMux(), time.Second)

	// When binding it
	err = worker.Listen()

	// Then the failure is reported up front
	req.Error(err)
	req.Nil(worker.Addr())
}

func TestHTTPServerWorker_Run_Uses_Listener_Bound_By_Listen(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	worker := NewHTTPServerWorker(log, "127.0.0.1:0", mux, time.Second)

	// Given the worker bound on an ephemeral port
	req.NoError(worker.Listen())
	addr := worker.Addr().String()

	// When it runs
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then it serves on that exact address
	req.Eventually(func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server worker did not stop")
	}
}
