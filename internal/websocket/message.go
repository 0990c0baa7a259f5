// Package websocket 提供 WebSocket 通信功能
// 实现房间内的实时双向通信
package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"pitchlab-server/internal/model"
)

// 客户端 → 服务端的消息类型
// 服务端 → 客户端的事件类型定义在 service 包，由写路径统一广播
const (
	TypeRoomJoin      = "room:join"      // 加入房间
	TypeRoomLeave     = "room:leave"     // 离开房间
	TypeMessageSend   = "message:send"   // 发送消息
	TypeMessageTyping = "message:typing" // 正在输入
	TypeIdeaCreate    = "idea:create"    // 创建点子
	TypeIdeaVote      = "idea:vote"      // 投票
)

// 服务端 → 客户端的成员变动事件
// 这两个事件由 Hub 直接产生，不经过服务层（不涉及落库）
const (
	TypeRoomJoined = "room:joined" // 有人加入房间
	TypeRoomLeft   = "room:left"   // 有人离开房间
)

// Message WebSocket 消息结构
// 两个方向的所有消息都使用这个统一的信封
type Message struct {
	Type      string      `json:"type"`                 // 消息类型
	Payload   interface{} `json:"payload"`              // 消息内容
	Timestamp int64       `json:"timestamp"`            // 时间戳（毫秒）
	MessageID string      `json:"message_id,omitempty"` // 消息ID，用于追踪
}

// NewMessage 创建新消息
// 服务端产生的消息都带唯一的消息ID，方便客户端去重和排障
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
		MessageID: uuid.NewString(),
	}
}

// decodePayload 把信封里的 Payload 解码为具体类型
// 入站消息的 Payload 反序列化后是 map，先编码回 JSON 再解码成目标结构
func decodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ==================== Payload 类型定义 ====================
// 入站载荷里没有用户字段：发送者身份在握手时绑定到连接上，
// 之后所有事件都使用连接上的身份，客户端声称的身份一律不信

// RoomPayload 加入/离开房间 Payload
type RoomPayload struct {
	RoomID int64 `json:"room_id"` // 目标房间ID
}

// MessageSendPayload 发送消息 Payload
type MessageSendPayload struct {
	RoomID    int64  `json:"room_id"`              // 目标房间ID
	Content   string `json:"content"`              // 消息内容
	TriggerAI bool   `json:"trigger_ai,omitempty"` // 是否触发 AI 增强
}

// TypingPayload 正在输入 Payload
type TypingPayload struct {
	RoomID   int64 `json:"room_id"`   // 目标房间ID
	IsTyping bool  `json:"is_typing"` // 开始/停止输入
}

// IdeaCreatePayload 创建点子 Payload
type IdeaCreatePayload struct {
	RoomID      int64   `json:"room_id"`               // 目标房间ID
	Title       string  `json:"title"`                 // 点子标题
	Description *string `json:"description,omitempty"` // 点子描述，可选
}

// IdeaVotePayload 投票 Payload
type IdeaVotePayload struct {
	IdeaID int64 `json:"idea_id"` // 目标点子ID
	Value  int   `json:"value"`   // 投票值，-1 / 0 / 1
}

// PresencePayload 成员变动事件 Payload
// room:joined 和 room:left 携带变动的用户
type PresencePayload struct {
	RoomID int64            `json:"room_id"` // 房间ID
	User   model.PublicUser `json:"user"`    // 变动的用户
}

// TypingRelayPayload 转发给房间其他成员的输入状态
type TypingRelayPayload struct {
	RoomID   int64            `json:"room_id"`   // 房间ID
	User     model.PublicUser `json:"user"`      // 正在输入的用户
	IsTyping bool             `json:"is_typing"` // 开始/停止输入
}
