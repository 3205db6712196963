package runtime

import (
	"chat-relay/domain"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Add_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()

	// Given no connection is registered
	req.Zero(registry.Len())

	// When a connection is added
	registry.Add(conn)

	// Then it can be found
	req.Equal(1, registry.Len())
	req.True(registry.Contains(conn.ID()))
	found, ok := registry.Get(conn.ID())
	req.True(ok)
	req.Equal(conn, found)
	req.Len(registry.All(), 1)
}

func TestRegistry_Remove_Twice_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()
	registry.Add(conn)

	// When the connection is removed twice
	first := registry.Remove(conn.ID())
	second := registry.Remove(conn.ID())

	// Then only the first removal did something
	req.True(first)
	req.False(second)
	req.Zero(registry.Len())
	req.Empty(registry.All())
}

func TestRegistry_All_Is_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn1, conn2 := newFakeConn(), newFakeConn()
	registry.Add(conn1)
	registry.Add(conn2)

	// Given a snapshot is taken
	snapshot := registry.All()

	// When a connection is removed afterwards
	registry.Remove(conn1.ID())

	// Then the snapshot is untouched
	req.Len(snapshot, 2)
	req.Len(registry.All(), 1)
}

func TestRegistry_Concurrent_Add_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newFakeConn()
			registry.Add(conn)
			_ = registry.All()
			registry.Remove(conn.ID())
		}()
	}
	wg.Wait()

	req.Zero(registry.Len())
	req.False(registry.Contains(domain.ConnID("unknown")))
}
