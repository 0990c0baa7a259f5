// 服务层测试共用的内存实现
// 用内存数据结构模拟数据访问接口，测试不需要真实的 MySQL 和 Redis
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
)

// ==================== 用户 ====================

type memUserStore struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]*model.User)}
}

func (s *memUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	user.ID = s.seq
	user.CreatedAt = time.Now()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != nil && *u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetGuestByName(_ context.Context, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.IsGuest && u.Name == name {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetAssistant(_ context.Context, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if !u.IsGuest && u.Email == nil && u.Name == name {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

// ==================== 房间 ====================

type memRoomStore struct {
	mu    sync.Mutex
	seq   int64
	rooms map[int64]*model.Room
}

func newMemRoomStore() *memRoomStore {
	return &memRoomStore{rooms: make(map[int64]*model.Room)}
}

func (s *memRoomStore) Create(_ context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	room.ID = s.seq
	room.CreatedAt = time.Now()
	clone := *room
	s.rooms[room.ID] = &clone
	return nil
}

func (s *memRoomStore) GetByID(_ context.Context, id int64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, nil
}

func (s *memRoomStore) GetByIDWithCounts(ctx context.Context, id int64) (*repository.RoomWithCounts, error) {
	room, err := s.GetByID(ctx, id)
	if err != nil || room == nil {
		return nil, err
	}
	return &repository.RoomWithCounts{Room: *room}, nil
}

func (s *memRoomStore) ListWithCounts(_ context.Context) ([]repository.RoomWithCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.RoomWithCounts, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, repository.RoomWithCounts{Room: *r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memRoomStore) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[id]
	return ok, nil
}

// ==================== 消息 ====================

type memMessageStore struct {
	mu       sync.Mutex
	seq      int64
	messages []model.Message
	// createErr 非 nil 时 Create 直接失败，模拟数据库故障
	createErr error
	// listErr 非 nil 时 GetLatestByRoomID 直接失败
	listErr error
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{}
}

func (s *memMessageStore) Create(_ context.Context, message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	message.ID = s.seq
	message.CreatedAt = time.Now()
	s.messages = append(s.messages, *message)
	return nil
}

func (s *memMessageStore) ListByRoomCursor(_ context.Context, roomID, cursor int64, limit int) ([]model.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Message
	for _, m := range s.messages {
		if m.RoomID != roomID {
			continue
		}
		if cursor > 0 && m.ID >= cursor {
			continue
		}
		matched = append(matched, m)
	}
	// 倒序，最新的在前
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	hasMore := len(matched) > limit
	if hasMore {
		matched = matched[:limit]
	}
	return matched, hasMore, nil
}

func (s *memMessageStore) GetLatestByRoomID(_ context.Context, roomID int64, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var matched []model.Message
	for _, m := range s.messages {
		if m.RoomID == roomID {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

// countByRole 按角色统计某房间的消息数
func (s *memMessageStore) countByRole(roomID int64, role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.messages {
		if m.RoomID == roomID && m.Role == role {
			count++
		}
	}
	return count
}

// ==================== 点子 ====================

type memIdeaStore struct {
	mu    sync.Mutex
	seq   int64
	ideas map[int64]*model.Idea
}

func newMemIdeaStore() *memIdeaStore {
	return &memIdeaStore{ideas: make(map[int64]*model.Idea)}
}

func (s *memIdeaStore) Create(_ context.Context, idea *model.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	idea.ID = s.seq
	idea.CreatedAt = time.Now()
	clone := *idea
	s.ideas[idea.ID] = &clone
	return nil
}

func (s *memIdeaStore) GetByID(_ context.Context, id int64) (*model.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idea, ok := s.ideas[id]; ok {
		clone := *idea
		return &clone, nil
	}
	return nil, nil
}

func (s *memIdeaStore) GetByIDWithUser(ctx context.Context, id int64) (*model.Idea, error) {
	return s.GetByID(ctx, id)
}

func (s *memIdeaStore) ListByRoomID(_ context.Context, roomID int64, sortBy string) ([]model.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Idea
	for _, idea := range s.ideas {
		if idea.RoomID == roomID {
			out = append(out, *idea)
		}
	}
	if sortBy == repository.IdeaSortByRecent {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	} else {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return out[i].ID > out[j].ID
		})
	}
	return out, nil
}

func (s *memIdeaStore) UpdateScore(_ context.Context, id int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idea, ok := s.ideas[id]; ok {
		idea.Score = score
	}
	return nil
}

// ==================== 投票 ====================

type memVoteStore struct {
	mu    sync.Mutex
	seq   int64
	votes map[[2]int64]*model.Vote // (userID, ideaID) -> vote
}

func newMemVoteStore() *memVoteStore {
	return &memVoteStore{votes: make(map[[2]int64]*model.Vote)}
}

func (s *memVoteStore) Upsert(_ context.Context, vote *model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{vote.UserID, vote.IdeaID}
	if existing, ok := s.votes[key]; ok {
		// 唯一索引命中：覆盖投票值而不是追加新行
		existing.Value = vote.Value
		existing.UpdatedAt = time.Now()
		return nil
	}
	s.seq++
	vote.ID = s.seq
	vote.CreatedAt = time.Now()
	clone := *vote
	s.votes[key] = &clone
	return nil
}

func (s *memVoteStore) GetByUserAndIdea(_ context.Context, userID, ideaID int64) (*model.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.votes[[2]int64{userID, ideaID}]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, nil
}

func (s *memVoteStore) SumByIdeaID(_ context.Context, ideaID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, v := range s.votes {
		if v.IdeaID == ideaID {
			sum += v.Value
		}
	}
	return sum, nil
}

// rowCount 某点子的投票行数
func (s *memVoteStore) rowCount(ideaID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, v := range s.votes {
		if v.IdeaID == ideaID {
			count++
		}
	}
	return count
}

// ==================== 广播 ====================

// publishedEvent 记录一次广播调用
type publishedEvent struct {
	RoomID  int64
	Event   string
	Payload interface{}
}

// recordingBroadcaster 记录所有广播，测试用它断言事件的内容和顺序
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{}
}

func (b *recordingBroadcaster) Publish(roomID int64, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{RoomID: roomID, Event: event, Payload: payload})
}

// all 所有广播事件的快照
func (b *recordingBroadcaster) all() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// ofType 某个类型的所有事件
func (b *recordingBroadcaster) ofType(event string) []publishedEvent {
	var out []publishedEvent
	for _, e := range b.all() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// ==================== AI ====================

// stubScheduler 记录触发过的房间
type stubScheduler struct {
	mu        sync.Mutex
	triggered []int64
}

func (s *stubScheduler) Trigger(roomID int64) *PipelineRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggered = append(s.triggered, roomID)
	return nil
}

func (s *stubScheduler) triggeredRooms() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.triggered))
	copy(out, s.triggered)
	return out
}

// stubGenerator 可配置失败的产物生成器
type stubGenerator struct {
	summary    string
	tags       []string
	pitch      string
	summaryErr error
	tagsErr    error
	pitchErr   error
}

func (g *stubGenerator) GenerateSummary(_ context.Context, _ []model.Message) (string, error) {
	return g.summary, g.summaryErr
}

func (g *stubGenerator) GenerateTags(_ context.Context, _ []model.Message) ([]string, error) {
	return g.tags, g.tagsErr
}

func (g *stubGenerator) GeneratePitch(_ context.Context, _ []model.Message) (string, error) {
	return g.pitch, g.pitchErr
}
