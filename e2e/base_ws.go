package e2e

import (
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/infrastructure/ws"
	"chat-relay/observability"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config    Config
	lifecycle *runtime.Lifecycle
	server    *httptest.Server
}

// SetupSuite loads the environment configuration and starts an in-process
// relay when no RELAY_URL is given.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayURL != "" {
		return
	}
	log := logs.GetLoggerFromLevel(slog.LevelInfo)
	s.lifecycle = runtime.NewRelay(log, observability.NewRelayMonitor(log)).Lifecycle

	s.server = httptest.NewServer(ws.NewRelayServer(log, s.lifecycle, ws.Options{
		OutboundQueueSize: 64,
		WriteTimeout:      time.Second,
	}, 4096))
	s.Config.RelayURL = "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *BaseRelaySuite) TearDownSuite() {
	if s.server == nil {
		return
	}
	s.lifecycle.CloseAll()
	s.server.Close()
}

// Step prints a colorized header for a scenario step.
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Connect dials the relay and closes the client at the end of the test.
func (s *BaseRelaySuite) Connect(name string) *client.Client {
	c, err := client.Dial(context.Background(), client.Config{URL: s.Config.RelayURL}, logs.GetLoggerFromLevel(slog.LevelInfo))
	s.Require().NoError(err, "Failed to connect %s to %s", name, s.Config.RelayURL)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

// Expect waits for the next frame of c.
func (s *BaseRelaySuite) Expect(c *client.Client) domain.Frame {
	select {
	case frame, ok := <-c.Messages():
		s.Require().True(ok, "connection closed before a frame arrived")
		return frame
	case <-time.After(3 * time.Second):
		s.Require().FailNow("no frame received")
		return domain.Frame{}
	}
}
