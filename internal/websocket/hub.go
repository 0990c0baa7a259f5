// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/service"
)

// RoomPresence 房间在线状态的写入接口
// 由 Redis 缓存实现，成员加入/离开时异步更新
type RoomPresence interface {
	AddRoomMember(ctx context.Context, roomID, userID int64) error
	RemoveRoomMember(ctx context.Context, roomID, userID int64) error
}

// Hub 是 WebSocket 连接的中心管理器
// 负责：
// 1. 管理所有客户端连接和房间成员关系
// 2. 把服务层的事件广播到房间内的所有会话
// 3. 同步 Redis 在线状态
//
// Hub 实现 service.Broadcaster 接口：服务层落库成功后
// 通过 Publish 把事件推给房间，不感知连接管理的细节
type Hub struct {
	// 房间成员映射：roomID -> 房间内的客户端集合
	// 一个客户端可以同时在多个房间里
	rooms map[int64]map[*Client]bool

	// 所有已注册的客户端
	clients map[*Client]bool

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// 互斥锁，保护并发访问
	mu sync.RWMutex

	// 依赖的服务
	collab   *service.CollabService
	presence RoomPresence

	log *logrus.Entry
}

// NewHub 创建 Hub 实例
// presence 允许为 nil，此时不维护 Redis 在线状态
func NewHub(collab *service.CollabService, presence RoomPresence) *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		collab:     collab,
		presence:   presence,
		log:        logrus.WithField("module", "ws_hub"),
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// registerClient 注册客户端
// 注册时客户端还不属于任何房间，房间成员关系由 room:join 事件建立
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"user_id": client.userID,
		"name":    client.name,
	}).Info("WebSocket 客户端已连接")
}

// unregisterClient 注销客户端
// 断开的会话从它加入的每个房间里移除，并逐个房间通知剩余成员。
// 成员变动只通知受影响的房间，不做全局广播
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	// 收集该客户端加入过的房间，并从成员表里移除
	joined := make([]int64, 0, len(client.roomIDs()))
	for _, roomID := range client.roomIDs() {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
		joined = append(joined, roomID)
	}
	h.mu.Unlock()

	for _, roomID := range joined {
		h.publishExcept(roomID, client, TypeRoomLeft, PresencePayload{
			RoomID: roomID,
			User:   client.publicUser(),
		})
		h.removePresence(roomID, client.userID)
	}

	client.Close()

	h.log.WithFields(logrus.Fields{
		"user_id": client.userID,
		"rooms":   len(joined),
	}).Info("WebSocket 客户端已断开")
}

// JoinRoom 把客户端加入房间
// 重复加入是幂等操作：成员关系不变，也不重复通知其他成员
func (h *Hub) JoinRoom(ctx context.Context, client *Client, roomID int64) error {
	exists, err := h.collab.RoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return service.ErrRoomNotFound
	}

	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[roomID] = members
	}
	if members[client] {
		// 已经在房间里
		h.mu.Unlock()
		return nil
	}
	members[client] = true
	h.mu.Unlock()

	client.addRoom(roomID)

	// 通知房间里的其他成员，不含加入者自己
	h.publishExcept(roomID, client, TypeRoomJoined, PresencePayload{
		RoomID: roomID,
		User:   client.publicUser(),
	})
	h.addPresence(roomID, client.userID)

	h.log.WithFields(logrus.Fields{
		"user_id": client.userID,
		"room_id": roomID,
	}).Info("加入房间")
	return nil
}

// LeaveRoom 把客户端移出房间
// 不在房间里时是无副作用的空操作
func (h *Hub) LeaveRoom(client *Client, roomID int64) {
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok || !members[client] {
		h.mu.Unlock()
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	client.removeRoom(roomID)

	h.publishExcept(roomID, client, TypeRoomLeft, PresencePayload{
		RoomID: roomID,
		User:   client.publicUser(),
	})
	h.removePresence(roomID, client.userID)

	h.log.WithFields(logrus.Fields{
		"user_id": client.userID,
		"room_id": roomID,
	}).Info("离开房间")
}

// Publish 把事件广播到房间内的所有会话
// 实现 service.Broadcaster 接口。对成员集合做快照后再发送，
// 发送期间的成员变动不影响本次广播
func (h *Hub) Publish(roomID int64, event string, payload interface{}) {
	h.broadcast(roomID, nil, event, payload)
}

// publishExcept 广播到房间内除 except 以外的所有会话
// 成员变动和输入状态用它避免回显给动作的发起者
func (h *Hub) publishExcept(roomID int64, except *Client, event string, payload interface{}) {
	h.broadcast(roomID, except, event, payload)
}

func (h *Hub) broadcast(roomID int64, except *Client, event string, payload interface{}) {
	data, err := json.Marshal(NewMessage(event, payload))
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("序列化广播消息失败")
		return
	}

	h.mu.RLock()
	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(members))
	for client := range members {
		if client != except {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.sendRaw(data)
	}
}

// RelayTyping 把输入状态转发给房间里的其他成员
// 输入状态是瞬时信号，不落库，发送者不在房间里时直接丢弃
func (h *Hub) RelayTyping(client *Client, roomID int64, isTyping bool) {
	h.mu.RLock()
	members, ok := h.rooms[roomID]
	isMember := ok && members[client]
	h.mu.RUnlock()
	if !isMember {
		return
	}

	h.publishExcept(roomID, client, TypeMessageTyping, TypingRelayPayload{
		RoomID:   roomID,
		User:     client.publicUser(),
		IsTyping: isTyping,
	})
}

// RoomMemberCount 房间当前的会话数（测试和调试用）
func (h *Hub) RoomMemberCount(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// addPresence 异步更新 Redis 在线状态
// Redis 故障只影响在线人数展示，不阻塞加入流程
func (h *Hub) addPresence(roomID, userID int64) {
	if h.presence == nil {
		return
	}
	go func() {
		if err := h.presence.AddRoomMember(context.Background(), roomID, userID); err != nil {
			h.log.WithError(err).WithField("room_id", roomID).Warn("更新在线状态失败")
		}
	}()
}

// removePresence 异步清理 Redis 在线状态
func (h *Hub) removePresence(roomID, userID int64) {
	if h.presence == nil {
		return
	}
	go func() {
		if err := h.presence.RemoveRoomMember(context.Background(), roomID, userID); err != nil {
			h.log.WithError(err).WithField("room_id", roomID).Warn("清理在线状态失败")
		}
	}()
}
