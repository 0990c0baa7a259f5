// Package service 实现业务逻辑层
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
)

// 分页参数的边界
const (
	DefaultPageSize = 50  // 默认每页消息数
	MaxPageSize     = 100 // 每页消息数上限
)

// MessagePage 一页消息
// 页内按时间正序排列（旧的在前），next_cursor 用于继续向更早的方向翻页
type MessagePage struct {
	Messages   []*MessageView `json:"messages"`
	NextCursor int64          `json:"next_cursor"` // 0 表示没有更早的消息
	HasMore    bool           `json:"has_more"`
}

// CollabService 协作服务，是所有房间内写操作的唯一入口
// HTTP 处理器和 WebSocket 会话都调用它，两条入口共享同一套
// 校验、落库、广播逻辑。写路径严格遵循"先落库、后广播"：
// 只有数据库确认后的事实才会推给房间
type CollabService struct {
	rooms     RoomStore
	users     UserStore
	messages  MessageStore
	ideas     IdeaStore
	votes     *VoteService
	broadcast Broadcaster
	pipeline  AugmentScheduler
	log       *logrus.Entry
}

// NewCollabService 创建 CollabService 实例
// broadcast 和 pipeline 允许为 nil（测试场景），为 nil 时跳过对应动作
func NewCollabService(rooms RoomStore, users UserStore, messages MessageStore, ideas IdeaStore, votes *VoteService) *CollabService {
	return &CollabService{
		rooms:    rooms,
		users:    users,
		messages: messages,
		ideas:    ideas,
		votes:    votes,
		log:      logrus.WithField("module", "collab_service"),
	}
}

// SetBroadcaster 注入广播器
// Hub 依赖 CollabService 处理客户端事件，CollabService 又要通过 Hub
// 广播，两者在组装阶段互相注入
func (s *CollabService) SetBroadcaster(b Broadcaster) {
	s.broadcast = b
}

// SetPipeline 注入 AI 流水线调度器
func (s *CollabService) SetPipeline(p AugmentScheduler) {
	s.pipeline = p
}

// RoomExists 检查房间是否存在
// WebSocket 层在加入房间前调用
func (s *CollabService) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	return s.rooms.Exists(ctx, roomID)
}

// ==================== 消息 ====================

// CreateMessage 创建消息并广播
// augment 为 true 时在落库和广播之后调度一次 AI 增强，
// 调度失败不影响消息本身的成功
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - userID: 发送者ID
//   - content: 消息内容
//   - role: 消息角色，空串按 user 处理
//   - augment: 是否触发 AI 增强
//
// 返回:
//   - *MessageView: 落库后的消息视图
//   - error: 业务错误或数据库错误
func (s *CollabService) CreateMessage(ctx context.Context, roomID, userID int64, content, role string, augment bool) (*MessageView, error) {
	if role == "" {
		role = model.MessageRoleUser
	}
	if role != model.MessageRoleUser && role != model.MessageRoleAssistant {
		return nil, ErrInvalidRole
	}

	exists, err := s.rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	message := &model.Message{
		RoomID:  roomID,
		UserID:  userID,
		Role:    role,
		Content: content,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("写入消息失败: %w", err)
	}
	message.User = user

	view := NewMessageView(message)
	s.publish(roomID, EventMessageNew, view)

	if augment && s.pipeline != nil {
		// 增强是异步的：这里只调度，结果稍后以独立事件到达
		s.pipeline.Trigger(roomID)
	}

	s.log.WithFields(logrus.Fields{
		"room_id":    roomID,
		"user_id":    userID,
		"message_id": message.ID,
		"augment":    augment,
	}).Info("消息已创建")

	return view, nil
}

// ListMessages 游标分页获取房间的历史消息
// 页内按时间正序返回，next_cursor 指向本页最早的一条，
// 下次请求传入它即可继续向更早的方向翻页
func (s *CollabService) ListMessages(ctx context.Context, roomID, cursor int64, limit int) (*MessagePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	exists, err := s.rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	messages, hasMore, err := s.messages.ListByRoomCursor(ctx, roomID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}

	page := &MessagePage{
		Messages: make([]*MessageView, 0, len(messages)),
		HasMore:  hasMore,
	}
	if hasMore && len(messages) > 0 {
		// 仓储返回的是倒序，最后一条就是本页最早的消息
		page.NextCursor = messages[len(messages)-1].ID
	}
	// 倒转为时间正序，前端按从上到下的阅读顺序直接渲染
	for i := len(messages) - 1; i >= 0; i-- {
		page.Messages = append(page.Messages, NewMessageView(&messages[i]))
	}
	return page, nil
}

// LatestMessages 获取房间最新的 N 条消息（时间正序）
func (s *CollabService) LatestMessages(ctx context.Context, roomID int64, limit int) ([]*MessageView, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	exists, err := s.rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	messages, err := s.messages.GetLatestByRoomID(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}

	views := make([]*MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, NewMessageView(&messages[i]))
	}
	return views, nil
}

// ==================== 点子 ====================

// CreateIdea 创建点子并广播
// 新点子的票数从 0 开始
func (s *CollabService) CreateIdea(ctx context.Context, roomID, userID int64, title string, description *string) (*IdeaView, error) {
	exists, err := s.rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	idea := &model.Idea{
		RoomID:      roomID,
		UserID:      userID,
		Title:       title,
		Description: description,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, fmt.Errorf("写入点子失败: %w", err)
	}
	idea.User = user

	view := NewIdeaView(idea)
	s.publish(roomID, EventIdeaNew, view)

	s.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
		"idea_id": idea.ID,
	}).Info("点子已创建")

	return view, nil
}

// ListIdeas 获取房间的点子列表
// sortBy 为 score（默认，按票数倒序）或 recent（按时间倒序）
func (s *CollabService) ListIdeas(ctx context.Context, roomID int64, sortBy string) ([]*IdeaView, error) {
	if sortBy == "" {
		sortBy = repository.IdeaSortByScore
	}
	if sortBy != repository.IdeaSortByScore && sortBy != repository.IdeaSortByRecent {
		sortBy = repository.IdeaSortByScore
	}

	exists, err := s.rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	ideas, err := s.ideas.ListByRoomID(ctx, roomID, sortBy)
	if err != nil {
		return nil, fmt.Errorf("查询点子失败: %w", err)
	}

	views := make([]*IdeaView, 0, len(ideas))
	for i := range ideas {
		views = append(views, NewIdeaView(&ideas[i]))
	}
	return views, nil
}

// GetIdea 获取单个点子详情
func (s *CollabService) GetIdea(ctx context.Context, id int64) (*IdeaView, error) {
	idea, err := s.ideas.GetByIDWithUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询点子失败: %w", err)
	}
	if idea == nil {
		return nil, ErrIdeaNotFound
	}
	return NewIdeaView(idea), nil
}

// ==================== 投票 ====================

// CastVote 投票并广播票数变化
// 聚合逻辑全部委托给投票聚合器，这里只负责把结果广播到点子所在的房间
func (s *CollabService) CastVote(ctx context.Context, userID, ideaID int64, value int) (*IdeaView, *model.Vote, error) {
	idea, vote, err := s.votes.Cast(ctx, userID, ideaID, value)
	if err != nil {
		return nil, nil, err
	}

	s.publish(idea.RoomID, EventIdeaVoted, IdeaVotedPayload{
		IdeaID: idea.ID,
		Score:  idea.Score,
		RoomID: idea.RoomID,
	})

	return NewIdeaView(idea), vote, nil
}

// publish 落库成功后广播事件
// 广播器未注入时静默跳过（单元测试场景）
func (s *CollabService) publish(roomID int64, event string, payload interface{}) {
	if s.broadcast == nil {
		return
	}
	s.broadcast.Publish(roomID, event, payload)
}
