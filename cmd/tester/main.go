package main

import (
	"chat-relay/client"
	"chat-relay/domain"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config drives a scripted relay session from the environment.
type Config struct {
	RelayURL string        `envconfig:"RELAY_URL" default:"ws://localhost:8080/ws"`
	Group    string        `envconfig:"TESTER_GROUP" default:"room1"`
	Count    int           `envconfig:"TESTER_COUNT" default:"5"`
	Interval time.Duration `envconfig:"TESTER_INTERVAL" default:"500ms"`
	Binary   bool          `envconfig:"TESTER_BINARY" default:"false"`
	Colours  bool          `envconfig:"TESTER_COLOURS" default:"true"`
	LogLevel string        `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

// run connects once, sends Count messages to Group (or globally when Group
// is empty) and prints everything the relay sends back until interrupted.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, client.Config{URL: config.RelayURL}, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	printer := newPrinter(config.Colours)
	printer.header(fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)", config.RelayURL))

	go func() {
		for i := 1; i <= config.Count; i++ {
			if err := send(c, config, i); err != nil {
				log.Error("Send failed", "error", err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(config.Interval):
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case frame, ok := <-c.Messages():
			if !ok {
				return exitRuntime, fmt.Errorf("relay closed the connection")
			}
			printer.frame(frame)
		}
	}
}

func send(c *client.Client, config Config, i int) error {
	if config.Binary {
		return c.SendBinary([]byte(fmt.Sprintf("chunk-%d", i)))
	}
	data := map[string]any{"seq": i, "at": time.Now().UTC().Format(time.RFC3339Nano)}
	if config.Group == "" {
		return c.Broadcast(data)
	}
	return c.SendGroup(config.Group, data)
}

type printer struct {
	colours bool
}

func newPrinter(colours bool) printer {
	return printer{colours: colours}
}

func (p printer) header(s string) {
	if p.colours {
		s = color.New(color.BgBlack, color.FgGreen).Render(s)
	}
	fmt.Println(s)
}

func (p printer) frame(frame domain.Frame) {
	label := fmt.Sprintf("[%s %dB]", frame.Kind, len(frame.Payload))
	body := string(frame.Payload)
	if frame.IsBinary() {
		body = fmt.Sprintf("%x", frame.Payload)
	}
	if p.colours {
		label = color.FgCyan.Render(label)
	}
	fmt.Println(label, body)
}
