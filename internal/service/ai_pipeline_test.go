package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pitchlab-server/internal/model"
)

// pipelineFixture AI 流水线测试环境
type pipelineFixture struct {
	pipeline  *AIPipeline
	gen       *stubGenerator
	messages  *memMessageStore
	users     *memUserStore
	broadcast *recordingBroadcaster
}

// newPipelineFixture 创建流水线测试环境
// 延迟窗口设为极短，测试不用等待真实的调度间隔
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		gen: &stubGenerator{
			summary: "讨论了实时协作的几个方向。",
			tags:    []string{"协作", "实时"},
			pitch:   "一个让灵感即时碰撞的空间。",
		},
		messages:  newMemMessageStore(),
		users:     newMemUserStore(),
		broadcast: newRecordingBroadcaster(),
	}
	f.pipeline = NewAIPipeline(f.gen, f.messages, f.users, f.broadcast, time.Millisecond, 20)
	return f
}

// seedMessages 给房间写入几条讨论消息
func (f *pipelineFixture) seedMessages(t *testing.T, roomID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.messages.Create(context.Background(), &model.Message{
			RoomID: roomID, UserID: 1, Role: model.MessageRoleUser, Content: "讨论内容",
		}))
	}
}

// waitDone 等待运行结束
func waitDone(t *testing.T, run *PipelineRun) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("流水线运行超时")
	}
}

// TestPipelineCompletes 成功路径：一条助手消息加三个产物事件，各恰好一次
func TestPipelineCompletes(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedMessages(t, 1, 3)

	run := f.pipeline.Trigger(1)
	waitDone(t, run)

	assert.Equal(t, RunStateCompleted, run.State())

	// 恰好一条助手消息落库
	assert.Equal(t, 1, f.messages.countByRole(1, model.MessageRoleAssistant))

	// 三种产物内容都进入了组合消息
	require.Len(t, f.broadcast.ofType(EventMessageNew), 1)
	view := f.broadcast.ofType(EventMessageNew)[0].Payload.(*MessageView)
	assert.Equal(t, model.MessageRoleAssistant, view.Role)
	assert.Contains(t, view.Content, f.gen.summary)
	assert.Contains(t, view.Content, f.gen.pitch)
	assert.Contains(t, view.Content, "协作、实时")

	// 三个产物事件各一次，且没有错误事件
	require.Len(t, f.broadcast.ofType(EventAISummary), 1)
	require.Len(t, f.broadcast.ofType(EventAITags), 1)
	require.Len(t, f.broadcast.ofType(EventAIPitch), 1)
	assert.Empty(t, f.broadcast.ofType(EventAIError))

	summary := f.broadcast.ofType(EventAISummary)[0].Payload.(AISummaryPayload)
	assert.Equal(t, f.gen.summary, summary.Summary)
}

// TestPipelineStageFallback 单个阶段失败用兜底内容顶替，流水线照常完成
func TestPipelineStageFallback(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedMessages(t, 1, 3)
	f.gen.summaryErr = assert.AnError

	run := f.pipeline.Trigger(1)
	waitDone(t, run)

	assert.Equal(t, RunStateCompleted, run.State())

	// 总结使用兜底文案，其余产物不受影响
	summary := f.broadcast.ofType(EventAISummary)[0].Payload.(AISummaryPayload)
	assert.Equal(t, fallbackSummary, summary.Summary)
	pitch := f.broadcast.ofType(EventAIPitch)[0].Payload.(AIPitchPayload)
	assert.Equal(t, f.gen.pitch, pitch.Pitch)
	assert.Empty(t, f.broadcast.ofType(EventAIError))
}

// TestPipelineAllStagesFallback 三个阶段全部失败仍然产出一条全兜底的助手消息
func TestPipelineAllStagesFallback(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedMessages(t, 1, 3)
	f.gen.summaryErr = assert.AnError
	f.gen.tagsErr = assert.AnError
	f.gen.pitchErr = assert.AnError

	run := f.pipeline.Trigger(1)
	waitDone(t, run)

	assert.Equal(t, RunStateCompleted, run.State())
	assert.Equal(t, 1, f.messages.countByRole(1, model.MessageRoleAssistant))

	view := f.broadcast.ofType(EventMessageNew)[0].Payload.(*MessageView)
	assert.Contains(t, view.Content, fallbackSummary)
	assert.Contains(t, view.Content, fallbackPitch)
	assert.Contains(t, view.Content, strings.Join(fallbackTags, "、"))
}

// TestPipelineContextFetchFailure 读不到讨论上下文时整体失败，只广播错误事件
func TestPipelineContextFetchFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.messages.listErr = assert.AnError

	run := f.pipeline.Trigger(1)
	waitDone(t, run)

	assert.Equal(t, RunStateDegraded, run.State())
	assert.Empty(t, f.broadcast.ofType(EventMessageNew))
	require.Len(t, f.broadcast.ofType(EventAIError), 1)
	payload := f.broadcast.ofType(EventAIError)[0].Payload.(AIErrorPayload)
	assert.Equal(t, int64(1), payload.RoomID)
}

// TestPipelineCoalescing 延迟窗口内的重复触发合并到同一次运行
func TestPipelineCoalescing(t *testing.T) {
	f := newPipelineFixture(t)
	// 加大延迟，保证第二次触发落在窗口内
	f.pipeline.delay = 100 * time.Millisecond
	f.seedMessages(t, 1, 3)

	first := f.pipeline.Trigger(1)
	second := f.pipeline.Trigger(1)
	assert.Same(t, first, second)

	waitDone(t, first)

	// 只有一条助手消息、一组产物事件
	assert.Equal(t, 1, f.messages.countByRole(1, model.MessageRoleAssistant))
	assert.Len(t, f.broadcast.ofType(EventAISummary), 1)

	// 运行结束后再触发会开启新的运行
	third := f.pipeline.Trigger(1)
	assert.NotSame(t, first, third)
	waitDone(t, third)
}

// TestPipelineDistinctRooms 不同房间的触发互不影响，各自独立运行
func TestPipelineDistinctRooms(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedMessages(t, 1, 2)
	f.seedMessages(t, 2, 2)

	runA := f.pipeline.Trigger(1)
	runB := f.pipeline.Trigger(2)
	assert.NotSame(t, runA, runB)

	waitDone(t, runA)
	waitDone(t, runB)

	assert.Equal(t, 1, f.messages.countByRole(1, model.MessageRoleAssistant))
	assert.Equal(t, 1, f.messages.countByRole(2, model.MessageRoleAssistant))
}

// TestPipelineCancelBeforeStart 延迟窗口内取消的运行不产生任何消息和事件
func TestPipelineCancelBeforeStart(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.delay = time.Hour // 保证取消发生在窗口内
	f.seedMessages(t, 1, 3)

	run := f.pipeline.Trigger(1)
	run.Cancel()
	waitDone(t, run)

	assert.Equal(t, RunStateCanceled, run.State())
	assert.Empty(t, f.broadcast.all())
	assert.Equal(t, 0, f.messages.countByRole(1, model.MessageRoleAssistant))
}

// TestPipelineCreatesAssistantOnce 助手用户首次运行时创建，之后复用
func TestPipelineCreatesAssistantOnce(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedMessages(t, 1, 2)

	run := f.pipeline.Trigger(1)
	waitDone(t, run)

	assistant, err := f.users.GetAssistant(context.Background(), AssistantName)
	require.NoError(t, err)
	require.NotNil(t, assistant)

	run = f.pipeline.Trigger(1)
	waitDone(t, run)

	// 两次运行后助手仍然只有一个
	again, err := f.users.GetAssistant(context.Background(), AssistantName)
	require.NoError(t, err)
	assert.Equal(t, assistant.ID, again.ID)
}
