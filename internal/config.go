package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0" validate:"required"`
	Port              int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	WebsocketPath     string        `env:"WEBSOCKET_PATH,default=/ws" validate:"required,startswith=/"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	OutboundQueueSize int           `env:"OUTBOUND_QUEUE_SIZE,default=256" validate:"min=1"`
	SocketBufferSize  int           `env:"SOCKET_BUFFER_SIZE,default=4096" validate:"min=512"`
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE,default=1048576" validate:"min=1"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gt=0"`
	PingInterval      time.Duration `env:"PING_INTERVAL,default=30s" validate:"gte=0"`
	PongWait          time.Duration `env:"PONG_WAIT,default=60s" validate:"gte=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=15s" validate:"gt=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	EnableDebug       bool          `env:"ENABLE_DEBUG,default=true"`
}

// Validate checks field ranges and the keepalive pair.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.PingInterval > 0 && c.PongWait <= c.PingInterval {
		return fmt.Errorf("PONG_WAIT (%s) must be greater than PING_INTERVAL (%s)", c.PongWait, c.PingInterval)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
