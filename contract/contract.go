//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one bidirectional client endpoint.
// Send must not block: implementations queue the frame or fail fast.
// Receive blocks until a frame arrives or the connection is gone.
type Conn interface {
	ID() domain.ConnID
	Send(frame domain.Frame) error
	Receive() (domain.Frame, error)
	IsOpen() bool
	Close() error
}

type IRegistry interface {
	Add(conn Conn)
	Remove(id domain.ConnID) bool
	Get(id domain.ConnID) (Conn, bool)
	Contains(id domain.ConnID) bool
	All() []Conn
	Len() int
}

type IGroupTable interface {
	Join(group domain.GroupName, conn Conn) error
	Leave(id domain.ConnID) []domain.GroupName
	Broadcast(ctx context.Context, group domain.GroupName, frame domain.Frame) domain.Delivery
	Groups() []domain.GroupName
	Members(group domain.GroupName) []domain.ConnID
	Len() int
}

type IRouter interface {
	Route(ctx context.Context, sender Conn, frame domain.Frame)
}
