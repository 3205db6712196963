package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrMalformedEnvelope = fmt.Errorf("malformed envelope")
	ErrInvalidGroup      = fmt.Errorf("invalid group name")
	ErrUnknownConnection = fmt.Errorf("connection is not registered")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrOutboundQueueFull = fmt.Errorf("outbound queue full")
)
