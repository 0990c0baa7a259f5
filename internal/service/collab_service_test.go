package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
)

// collabFixture 协作服务测试环境
type collabFixture struct {
	svc       *CollabService
	rooms     *memRoomStore
	users     *memUserStore
	messages  *memMessageStore
	ideas     *memIdeaStore
	votes     *memVoteStore
	broadcast *recordingBroadcaster
	scheduler *stubScheduler

	room *model.Room
	user *model.User
}

func newCollabFixture(t *testing.T) *collabFixture {
	t.Helper()

	f := &collabFixture{
		rooms:     newMemRoomStore(),
		users:     newMemUserStore(),
		messages:  newMemMessageStore(),
		ideas:     newMemIdeaStore(),
		votes:     newMemVoteStore(),
		broadcast: newRecordingBroadcaster(),
		scheduler: &stubScheduler{},
	}

	voteService := NewVoteService(f.ideas, f.votes)
	f.svc = NewCollabService(f.rooms, f.users, f.messages, f.ideas, voteService)
	f.svc.SetBroadcaster(f.broadcast)
	f.svc.SetPipeline(f.scheduler)

	ctx := context.Background()
	f.room = &model.Room{Name: "测试房间"}
	require.NoError(t, f.rooms.Create(ctx, f.room))
	f.user = &model.User{Name: "小明", IsGuest: true}
	require.NoError(t, f.users.Create(ctx, f.user))

	return f
}

// TestCreateMessageBroadcastsAfterPersist 消息落库成功后广播，且广播内容就是落库的事实
func TestCreateMessageBroadcastsAfterPersist(t *testing.T) {
	f := newCollabFixture(t)

	view, err := f.svc.CreateMessage(context.Background(), f.room.ID, f.user.ID, "大家好", "", false)
	require.NoError(t, err)

	assert.NotZero(t, view.ID) // 已落库，有数据库分配的 ID
	assert.Equal(t, "大家好", view.Content)
	assert.Equal(t, model.MessageRoleUser, view.Role)
	assert.Equal(t, f.user.Name, view.User.Name)

	events := f.broadcast.ofType(EventMessageNew)
	require.Len(t, events, 1)
	assert.Equal(t, f.room.ID, events[0].RoomID)
	assert.Same(t, view, events[0].Payload.(*MessageView))
}

// TestCreateMessageRoomNotFound 房间不存在时不落库也不广播
func TestCreateMessageRoomNotFound(t *testing.T) {
	f := newCollabFixture(t)

	_, err := f.svc.CreateMessage(context.Background(), 999, f.user.ID, "大家好", "", false)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Empty(t, f.broadcast.all())
}

// TestCreateMessagePersistFailureSilent 落库失败时不广播
func TestCreateMessagePersistFailureSilent(t *testing.T) {
	f := newCollabFixture(t)
	f.messages.createErr = assert.AnError

	_, err := f.svc.CreateMessage(context.Background(), f.room.ID, f.user.ID, "大家好", "", false)
	assert.Error(t, err)
	assert.Empty(t, f.broadcast.all())
}

// TestCreateMessageTriggersPipeline 带增强标记的消息调度一次 AI 流水线
func TestCreateMessageTriggersPipeline(t *testing.T) {
	f := newCollabFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateMessage(ctx, f.room.ID, f.user.ID, "普通消息", "", false)
	require.NoError(t, err)
	assert.Empty(t, f.scheduler.triggeredRooms()) // 未带标记不触发

	_, err = f.svc.CreateMessage(ctx, f.room.ID, f.user.ID, "帮我总结一下", "", true)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.room.ID}, f.scheduler.triggeredRooms())
}

// TestCreateMessageInvalidRole 非法角色被拒绝
func TestCreateMessageInvalidRole(t *testing.T) {
	f := newCollabFixture(t)

	_, err := f.svc.CreateMessage(context.Background(), f.room.ID, f.user.ID, "内容", "system", false)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// TestListMessagesPagination 游标分页：页内时间正序，游标指向更早的方向
func TestListMessagesPagination(t *testing.T) {
	f := newCollabFixture(t)
	ctx := context.Background()

	// 写入 5 条消息，ID 1..5
	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateMessage(ctx, f.room.ID, f.user.ID, "消息", "", false)
		require.NoError(t, err)
	}

	// 第一页：最新的 2 条，页内正序
	page, err := f.svc.ListMessages(ctx, f.room.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, int64(4), page.Messages[0].ID)
	assert.Equal(t, int64(5), page.Messages[1].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(4), page.NextCursor)

	// 第二页：接着游标向更早的方向
	page, err = f.svc.ListMessages(ctx, f.room.ID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, int64(2), page.Messages[0].ID)
	assert.Equal(t, int64(3), page.Messages[1].ID)
	assert.True(t, page.HasMore)

	// 最后一页
	page, err = f.svc.ListMessages(ctx, f.room.ID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, int64(1), page.Messages[0].ID)
	assert.False(t, page.HasMore)
	assert.Zero(t, page.NextCursor)
}

// TestCreateIdeaBroadcasts 新点子落库后广播，票数从 0 开始
func TestCreateIdeaBroadcasts(t *testing.T) {
	f := newCollabFixture(t)

	view, err := f.svc.CreateIdea(context.Background(), f.room.ID, f.user.ID, "共享白板", nil)
	require.NoError(t, err)

	assert.NotZero(t, view.ID)
	assert.Equal(t, 0, view.Score)

	events := f.broadcast.ofType(EventIdeaNew)
	require.Len(t, events, 1)
	assert.Equal(t, f.room.ID, events[0].RoomID)
}

// TestCastVoteBroadcastsScore 投票后向点子所在的房间广播重算后的票数
func TestCastVoteBroadcastsScore(t *testing.T) {
	f := newCollabFixture(t)
	ctx := context.Background()

	idea, err := f.svc.CreateIdea(ctx, f.room.ID, f.user.ID, "共享白板", nil)
	require.NoError(t, err)

	view, _, err := f.svc.CastVote(ctx, f.user.ID, idea.ID, model.VoteValueUp)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Score)

	events := f.broadcast.ofType(EventIdeaVoted)
	require.Len(t, events, 1)
	payload := events[0].Payload.(IdeaVotedPayload)
	assert.Equal(t, idea.ID, payload.IdeaID)
	assert.Equal(t, 1, payload.Score)
	assert.Equal(t, f.room.ID, payload.RoomID)
}

// TestCastVoteInvalidValueNoBroadcast 非法投票值既不落库也不广播
func TestCastVoteInvalidValueNoBroadcast(t *testing.T) {
	f := newCollabFixture(t)
	ctx := context.Background()

	idea, err := f.svc.CreateIdea(ctx, f.room.ID, f.user.ID, "共享白板", nil)
	require.NoError(t, err)

	_, _, err = f.svc.CastVote(ctx, f.user.ID, idea.ID, 5)
	assert.ErrorIs(t, err, ErrInvalidVoteValue)
	assert.Empty(t, f.broadcast.ofType(EventIdeaVoted))
}

// TestListIdeasSorting score 排序把高票点子排在前面
func TestListIdeasSorting(t *testing.T) {
	f := newCollabFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateIdea(ctx, f.room.ID, f.user.ID, "点子一", nil)
	require.NoError(t, err)
	second, err := f.svc.CreateIdea(ctx, f.room.ID, f.user.ID, "点子二", nil)
	require.NoError(t, err)

	// 给第二个点子投一票
	_, _, err = f.svc.CastVote(ctx, f.user.ID, second.ID, model.VoteValueUp)
	require.NoError(t, err)

	views, err := f.svc.ListIdeas(ctx, f.room.ID, repository.IdeaSortByScore)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)

	// recent 排序按创建时间倒序
	views, err = f.svc.ListIdeas(ctx, f.room.ID, repository.IdeaSortByRecent)
	require.NoError(t, err)
	assert.Equal(t, second.ID, views[0].ID)
}
