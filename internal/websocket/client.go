// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
	"pitchlab-server/internal/service"
)

// 连接配置常量
const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 等待 Pong 响应的超时时间
	pongWait = 60 * time.Second

	// 发送 Ping 的间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小（64KB）
	maxMessageSize = 64 * 1024
)

// Client 表示一个 WebSocket 客户端连接
// 身份在握手阶段从 Token 绑定到连接上，之后所有事件都使用
// 这份身份，入站载荷里声称的用户一律忽略
type Client struct {
	hub  *Hub            // 所属的 Hub
	conn *websocket.Conn // WebSocket 连接
	send chan []byte     // 发送消息的通道

	userID  int64  // 用户ID
	name    string // 显示名称
	isGuest bool   // 是否为访客

	mu     sync.Mutex     // 保护 joined 和 closed
	joined map[int64]bool // 已加入的房间
	closed bool           // send 通道是否已关闭

	log *logrus.Entry
}

// NewClient 创建新的客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, name string, isGuest bool) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256), // 缓冲区大小
		userID:  userID,
		name:    name,
		isGuest: isGuest,
		joined:  make(map[int64]bool),
		log: logrus.WithFields(logrus.Fields{
			"module":  "ws_client",
			"user_id": userID,
		}),
	}
}

// publicUser 连接上绑定的用户公开信息
func (c *Client) publicUser() model.PublicUser {
	return model.PublicUser{
		ID:      c.userID,
		Name:    c.name,
		IsGuest: c.isGuest,
	}
}

// addRoom 记录客户端加入的房间
func (c *Client) addRoom(roomID int64) {
	c.mu.Lock()
	c.joined[roomID] = true
	c.mu.Unlock()
}

// removeRoom 移除客户端加入的房间
func (c *Client) removeRoom(roomID int64) {
	c.mu.Lock()
	delete(c.joined, roomID)
	c.mu.Unlock()
}

// roomIDs 客户端当前加入的所有房间
func (c *Client) roomIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	return ids
}

// ReadPump 读取 WebSocket 消息的 goroutine
// 每个客户端连接启动一个 ReadPump
// 在这个 goroutine 里按到达顺序逐条处理事件，
// 同一个会话的操作天然串行
func (c *Client) ReadPump() {
	// 确保退出时清理资源
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	// 设置读取限制
	c.conn.SetReadLimit(maxMessageSize)

	// 设置读取超时
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	// 设置 Pong 处理函数
	// 每次收到 Pong，重置读取超时
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// 循环读取消息
	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			// 检查是否是正常关闭
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket 读取错误")
			}
			break
		}

		// 解析消息
		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.log.WithError(err).Warn("解析消息失败")
			continue
		}

		// 处理消息
		c.handleMessage(&msg)
	}
}

// WritePump 写入 WebSocket 消息的 goroutine
// 每个客户端连接启动一个 WritePump
// 负责从 send 通道读取消息并写入 WebSocket
func (c *Client) WritePump() {
	// 创建 Ping 定时器
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			// 设置写超时
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// send 通道已关闭
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// 发送 Ping
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendRaw 向客户端发送已序列化的消息
// 持锁检查 closed 并完成发送：Close 也持同一把锁，
// 通道不会在检查和发送之间被关闭
func (c *Client) sendRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	// 非阻塞发送
	select {
	case c.send <- data:
	default:
		// 如果通道已满，说明客户端处理不过来
		c.log.Warn("发送缓冲区已满，丢弃消息")
	}
}

// handleMessage 处理接收到的消息
// 失败的操作只记录日志，不回发错误确认：广播事件是唯一的反馈渠道，
// 客户端没收到对应事件就说明操作没有生效
func (c *Client) handleMessage(msg *Message) {
	ctx := context.Background()

	switch msg.Type {
	case TypeRoomJoin:
		var payload RoomPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 room:join 载荷")
			return
		}
		if err := c.hub.JoinRoom(ctx, c, payload.RoomID); err != nil {
			c.log.WithError(err).WithField("room_id", payload.RoomID).Warn("加入房间失败")
		}

	case TypeRoomLeave:
		var payload RoomPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 room:leave 载荷")
			return
		}
		c.hub.LeaveRoom(c, payload.RoomID)

	case TypeMessageSend:
		var payload MessageSendPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 message:send 载荷")
			return
		}
		if payload.Content == "" {
			return
		}
		// 角色固定为 user：WebSocket 入口不允许伪造助手消息
		if _, err := c.hub.collab.CreateMessage(ctx, payload.RoomID, c.userID, payload.Content, model.MessageRoleUser, payload.TriggerAI); err != nil {
			c.log.WithError(err).WithField("room_id", payload.RoomID).Warn("发送消息失败")
		}

	case TypeMessageTyping:
		var payload TypingPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 message:typing 载荷")
			return
		}
		c.hub.RelayTyping(c, payload.RoomID, payload.IsTyping)

	case TypeIdeaCreate:
		var payload IdeaCreatePayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 idea:create 载荷")
			return
		}
		if payload.Title == "" {
			return
		}
		if _, err := c.hub.collab.CreateIdea(ctx, payload.RoomID, c.userID, payload.Title, payload.Description); err != nil {
			c.log.WithError(err).WithField("room_id", payload.RoomID).Warn("创建点子失败")
		}

	case TypeIdeaVote:
		var payload IdeaVotePayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.log.WithError(err).Warn("无效的 idea:vote 载荷")
			return
		}
		if _, _, err := c.hub.collab.CastVote(ctx, c.userID, payload.IdeaID, payload.Value); err != nil {
			c.log.WithError(err).WithField("idea_id", payload.IdeaID).Warn("投票失败")
		}

	default:
		c.log.WithField("type", msg.Type).Warn("未知的消息类型")
	}
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// 编译期断言：Hub 满足服务层的广播接口
var _ service.Broadcaster = (*Hub)(nil)
