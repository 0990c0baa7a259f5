// Hub 的白盒测试
// 客户端不绑定真实连接，直接从 send 通道断言收到的广播
package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
	"pitchlab-server/internal/service"
)

// fakeRoomStore 只实现房间存在性检查，其余方法在这些测试里不会被调用
type fakeRoomStore struct {
	existing map[int64]bool
}

func (s *fakeRoomStore) Create(_ context.Context, _ *model.Room) error { return nil }
func (s *fakeRoomStore) GetByID(_ context.Context, _ int64) (*model.Room, error) {
	return nil, nil
}
func (s *fakeRoomStore) GetByIDWithCounts(_ context.Context, _ int64) (*repository.RoomWithCounts, error) {
	return nil, nil
}
func (s *fakeRoomStore) ListWithCounts(_ context.Context) ([]repository.RoomWithCounts, error) {
	return nil, nil
}
func (s *fakeRoomStore) Exists(_ context.Context, id int64) (bool, error) {
	return s.existing[id], nil
}

// newTestHub 创建不接 Redis 的 Hub，房间 1 和 2 存在
func newTestHub() *Hub {
	rooms := &fakeRoomStore{existing: map[int64]bool{1: true, 2: true}}
	collab := service.NewCollabService(rooms, nil, nil, nil, nil)
	return NewHub(collab, nil)
}

// newTestClient 创建不绑定真实连接的客户端
func newTestClient(hub *Hub, userID int64, name string) *Client {
	return NewClient(hub, nil, userID, name, true)
}

// recvEvent 从客户端的发送通道取一条消息
func recvEvent(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("没有收到预期的消息")
		return nil
	}
}

// assertNoEvent 断言客户端没有待接收的消息
func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("收到了预期外的消息: %s", string(data))
	default:
	}
}

// TestJoinRoomNotifiesOthers 加入房间通知已有成员，不回显给加入者
func TestJoinRoomNotifiesOthers(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")

	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	// 房间里还没有别人，没有通知
	assertNoEvent(t, a)

	require.NoError(t, hub.JoinRoom(ctx, b, 1))

	// 已有成员 a 收到 b 加入的通知
	msg := recvEvent(t, a)
	assert.Equal(t, TypeRoomJoined, msg.Type)
	payload := msg.Payload.(map[string]interface{})
	assert.Equal(t, float64(1), payload["room_id"])
	user := payload["user"].(map[string]interface{})
	assert.Equal(t, "小红", user["name"])

	// 加入者自己不收到回显
	assertNoEvent(t, b)
	assert.Equal(t, 2, hub.RoomMemberCount(1))
}

// TestJoinRoomIdempotent 重复加入不改变成员关系也不重复通知
func TestJoinRoomIdempotent(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 1))
	recvEvent(t, a) // 消费 b 加入的通知

	require.NoError(t, hub.JoinRoom(ctx, b, 1))

	assert.Equal(t, 2, hub.RoomMemberCount(1))
	assertNoEvent(t, a)
}

// TestJoinRoomNotFound 加入不存在的房间返回业务错误
func TestJoinRoomNotFound(t *testing.T) {
	hub := newTestHub()

	a := newTestClient(hub, 1, "小明")
	err := hub.JoinRoom(context.Background(), a, 99)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Zero(t, hub.RoomMemberCount(99))
}

// TestLeaveRoomNotifiesRemaining 离开房间通知剩余成员
func TestLeaveRoomNotifiesRemaining(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 1))
	recvEvent(t, a)

	hub.LeaveRoom(b, 1)

	msg := recvEvent(t, a)
	assert.Equal(t, TypeRoomLeft, msg.Type)
	user := msg.Payload.(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "小红", user["name"])
	assert.Equal(t, 1, hub.RoomMemberCount(1))
}

// TestLeaveRoomNoop 未加入时离开是无副作用的空操作
func TestLeaveRoomNoop(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))

	hub.LeaveRoom(b, 1)

	assertNoEvent(t, a)
	assert.Equal(t, 1, hub.RoomMemberCount(1))
}

// TestPublishReachesMembersOnly 广播只送达目标房间的成员
func TestPublishReachesMembersOnly(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	c := newTestClient(hub, 3, "小刚")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 1))
	require.NoError(t, hub.JoinRoom(ctx, c, 2))
	recvEvent(t, a) // 消费成员变动通知

	hub.Publish(1, service.EventMessageNew, map[string]string{"content": "大家好"})

	for _, member := range []*Client{a, b} {
		msg := recvEvent(t, member)
		assert.Equal(t, service.EventMessageNew, msg.Type)
		assert.NotEmpty(t, msg.MessageID)
	}
	// 其他房间的成员收不到
	assertNoEvent(t, c)
}

// TestUnregisterNotifiesJoinedRooms 断开的会话按房间通知剩余成员
func TestUnregisterNotifiesJoinedRooms(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	hub.registerClient(a)
	hub.registerClient(b)
	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 2))
	recvEvent(t, a)

	hub.unregisterClient(b)

	// 房间 1 的剩余成员收到 room:left
	msg := recvEvent(t, a)
	assert.Equal(t, TypeRoomLeft, msg.Type)
	assert.Equal(t, 1, hub.RoomMemberCount(1))
	// 房间 2 只剩 b 自己，清空后房间条目被回收
	assert.Zero(t, hub.RoomMemberCount(2))

	// 重复注销是空操作
	hub.unregisterClient(b)
	assertNoEvent(t, a)
}

// TestRelayTypingExcludesSender 输入状态只转发给房间里的其他成员
func TestRelayTypingExcludesSender(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	b := newTestClient(hub, 2, "小红")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))
	require.NoError(t, hub.JoinRoom(ctx, b, 1))
	recvEvent(t, a)

	hub.RelayTyping(a, 1, true)

	msg := recvEvent(t, b)
	assert.Equal(t, TypeMessageTyping, msg.Type)
	payload := msg.Payload.(map[string]interface{})
	assert.Equal(t, true, payload["is_typing"])
	assertNoEvent(t, a)
}

// TestRelayTypingNonMemberDropped 不在房间里的发送者的输入状态被丢弃
func TestRelayTypingNonMemberDropped(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	a := newTestClient(hub, 1, "小明")
	outsider := newTestClient(hub, 2, "小红")
	require.NoError(t, hub.JoinRoom(ctx, a, 1))

	hub.RelayTyping(outsider, 1, true)

	assertNoEvent(t, a)
}
