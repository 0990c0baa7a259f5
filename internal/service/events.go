// Package service 实现业务逻辑层
package service

import (
	"time"

	"pitchlab-server/internal/model"
)

// 服务端广播的事件类型
// 写路径（HTTP 或 WebSocket）落库成功后，以这些事件通知房间内的所有会话
const (
	EventMessageNew    = "message:new"    // 新消息（用户或 AI 助手）
	EventMessageTyping = "message:typing" // 正在输入提示
	EventIdeaNew       = "idea:new"       // 新点子
	EventIdeaVoted     = "idea:voted"     // 点子票数变化
	EventAISummary     = "ai:summary"     // AI 生成的总结
	EventAITags        = "ai:tags"        // AI 生成的标签
	EventAIPitch       = "ai:pitch"       // AI 生成的亮点陈述
	EventAIError       = "ai:error"       // AI 流水线整体失败
)

// MessageView 消息的对外视图
// 广播事件和接口响应共用，发送者只携带公开字段
type MessageView struct {
	ID        int64            `json:"id"`
	RoomID    int64            `json:"room_id"`
	UserID    int64            `json:"user_id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	User      model.PublicUser `json:"user"`
}

// NewMessageView 从消息模型构造对外视图
// 要求 User 字段已加载；未加载时只保留 UserID
func NewMessageView(m *model.Message) *MessageView {
	view := &MessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		view.User = m.User.Public()
	}
	return view
}

// IdeaView 点子的对外视图
type IdeaView struct {
	ID          int64            `json:"id"`
	RoomID      int64            `json:"room_id"`
	UserID      int64            `json:"user_id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Score       int              `json:"score"`
	VoteCount   int              `json:"vote_count"`
	CreatedAt   time.Time        `json:"created_at"`
	User        model.PublicUser `json:"user"`
}

// NewIdeaView 从点子模型构造对外视图
func NewIdeaView(idea *model.Idea) *IdeaView {
	view := &IdeaView{
		ID:          idea.ID,
		RoomID:      idea.RoomID,
		UserID:      idea.UserID,
		Title:       idea.Title,
		Description: idea.Description,
		Score:       idea.Score,
		VoteCount:   len(idea.Votes),
		CreatedAt:   idea.CreatedAt,
	}
	if idea.User != nil {
		view.User = idea.User.Public()
	}
	return view
}

// IdeaVotedPayload idea:voted 事件的载荷
// 只携带票数变化的最小事实，客户端按 idea_id 更新本地状态
type IdeaVotedPayload struct {
	IdeaID int64 `json:"idea_id"`
	Score  int   `json:"score"`
	RoomID int64 `json:"room_id"`
}

// AISummaryPayload ai:summary 事件的载荷
type AISummaryPayload struct {
	RoomID  int64  `json:"room_id"`
	Summary string `json:"summary"`
}

// AITagsPayload ai:tags 事件的载荷
type AITagsPayload struct {
	RoomID int64    `json:"room_id"`
	Tags   []string `json:"tags"`
}

// AIPitchPayload ai:pitch 事件的载荷
type AIPitchPayload struct {
	RoomID int64  `json:"room_id"`
	Pitch  string `json:"pitch"`
}

// AIErrorPayload ai:error 事件的载荷
type AIErrorPayload struct {
	RoomID int64  `json:"room_id"`
	Error  string `json:"error"`
}
