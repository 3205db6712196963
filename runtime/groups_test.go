package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestGroupTable() (*Registry, *GroupTable) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	return registry, NewGroupTable(log, registry)
}

func TestGroupTable_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry, groups := newTestGroupTable()
	conn := newFakeConn()
	registry.Add(conn)

	// When the same connection joins the same group several times
	for i := 0; i < 3; i++ {
		req.NoError(groups.Join("room1", conn))
	}

	// Then it appears only once
	req.Equal([]domain.ConnID{conn.ID()}, groups.Members("room1"))
	req.Equal(1, groups.Len())
}

func TestGroupTable_Join_Rejects_Unregistered_Connection(t *testing.T) {
	req := require.New(t)
	_, groups := newTestGroupTable()

	err := groups.Join("room1", newFakeConn())

	req.ErrorIs(err, errors.ErrUnknownConnection)
	req.Empty(groups.Groups())
}

func TestGroupTable_Join_Rejects_Empty_Group(t *testing.T) {
	req := require.New(t)
	registry, groups := newTestGroupTable()
	conn := newFakeConn()
	registry.Add(conn)

	req.ErrorIs(groups.Join("", conn), errors.ErrInvalidGroup)
	req.Zero(groups.Len())
}

func TestGroupTable_Leave_Removes_Empty_Groups(t *testing.T) {
	req := require.New(t)
	registry, groups := newTestGroupTable()
	alice, bob := newFakeConn(), newFakeConn()
	registry.Add(alice)
	registry.Add(bob)

	// Given alice is in room1 and room2, bob only in room1
	req.NoError(groups.Join("room1", alice))
	req.NoError(groups.Join("room2", alice))
	req.NoError(groups.Join("room1", bob))

	// When alice leaves
	left := groups.Leave(alice.ID())

	// Then she left both groups
	req.ElementsMatch([]domain.GroupName{"room1", "room2"}, left)
	// And room2 is gone while room1 keeps bob
	req.Equal([]domain.GroupName{"room1"}, groups.Groups())
	req.Equal([]domain.ConnID{bob.ID()}, groups.Members("room1"))
	req.Nil(groups.Members("room2"))

	// When bob leaves
	groups.Leave(bob.ID())

	// Then no group remains
	req.Empty(groups.Groups())
}

func TestGroupTable_Leave_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	_, groups := newTestGroupTable()

	req.Empty(groups.Leave(domain.NewConnID()))
}

func TestGroupTable_Broadcast_Skips_Closed_Members(t *testing.T) {
	req := require.New(t)
	registry, groups := newTestGroupTable()
	alice, bob := newFakeConn(), newFakeConn()
	registry.Add(alice)
	registry.Add(bob)
	req.NoError(groups.Join("room1", alice))
	req.NoError(groups.Join("room1", bob))

	// Given bob's socket closed but his teardown didn't run yet
	req.NoError(bob.Close())

	// When a frame is broadcast to room1
	frame := domain.TextFrame([]byte(`{"group":"room1","data":"hi"}`))
	delivery := groups.Broadcast(context.Background(), "room1", frame)

	// Then only alice got it
	req.Equal(domain.Delivery{Delivered: 1, Skipped: 1}, delivery)
	req.Equal([]domain.Frame{frame}, alice.Sent())
	req.Empty(bob.Sent())
}

func TestGroupTable_Broadcast_Continues_After_Send_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry, groups := newTestGroupTable()

	frame := domain.TextFrame([]byte(`{"group":"room1","data":"hi"}`))
	failing := mocks.NewMockConn(ctrl)
	failing.EXPECT().ID().Return(domain.ConnID("failing")).AnyTimes()
	failing.EXPECT().IsOpen().Return(true).Times(1)
	failing.EXPECT().Send(frame).Return(errors.ErrOutboundQueueFull).Times(1)
	healthy := newFakeConn()

	registry.Add(failing)
	registry.Add(healthy)
	req.NoError(groups.Join("room1", failing))
	req.NoError(groups.Join("room1", healthy))

	// When the broadcast hits a member whose queue is full
	delivery := groups.Broadcast(context.Background(), "room1", frame)

	// Then the other member still receives the frame
	req.Equal(domain.Delivery{Delivered: 1, Failed: 1}, delivery)
	req.Equal([]domain.Frame{frame}, healthy.Sent())
}

func TestGroupTable_Broadcast_Counts_Closing_Member_As_Skipped(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry, groups := newTestGroupTable()

	frame := domain.TextFrame([]byte(`{"group":"room1","data":"hi"}`))
	closing := mocks.NewMockConn(ctrl)
	closing.EXPECT().ID().Return(domain.ConnID("closing")).AnyTimes()
	// Given a member still open when checked but closed by the time Send runs
	closing.EXPECT().IsOpen().Return(true).Times(1)
	closing.EXPECT().Send(frame).Return(errors.ErrConnectionClosed).Times(1)
	healthy := newFakeConn()

	registry.Add(closing)
	registry.Add(healthy)
	req.NoError(groups.Join("room1", closing))
	req.NoError(groups.Join("room1", healthy))

	// When broadcasting
	delivery := groups.Broadcast(context.Background(), "room1", frame)

	// Then the race is a skip, not a failure
	req.Equal(domain.Delivery{Delivered: 1, Skipped: 1}, delivery)
	req.Equal([]domain.Frame{frame}, healthy.Sent())
}

func TestGroupTable_Broadcast_Unknown_Group(t *testing.T) {
	req := require.New(t)
	_, groups := newTestGroupTable()

	delivery := groups.Broadcast(context.Background(), "nowhere", domain.TextFrame([]byte(`{}`)))

	req.Zero(delivery.Recipients())
	req.Empty(groups.Groups())
}

func TestGroupTable_Concurrent_Join_Leave(t *testing.T) {
	req := require.New(t)
	registry, groups := newTestGroupTable()
	var wg sync.WaitGroup

	stayers := make([]*fakeConn, 10)
	for i := range stayers {
		stayers[i] = newFakeConn()
		registry.Add(stayers[i])
	}

	// Given connections concurrently joining the same groups while others leave
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn()
			registry.Add(conn)
			group := domain.GroupName(fmt.Sprintf("room%d", i%3))
			_ = groups.Join(group, conn)
			_ = groups.Join(group, conn)
			groups.Broadcast(context.Background(), group, domain.TextFrame([]byte(`{}`)))
			groups.Leave(conn.ID())
			registry.Remove(conn.ID())
		}(i)
	}
	for _, conn := range stayers {
		wg.Add(1)
		go func(conn *fakeConn) {
			defer wg.Done()
			_ = groups.Join("room0", conn)
			_ = groups.Join("room0", conn)
		}(conn)
	}
	wg.Wait()

	// Then only the stayers remain, each exactly once
	req.Equal([]domain.GroupName{"room0"}, groups.Groups())
	req.Len(groups.Members("room0"), len(stayers))
}
