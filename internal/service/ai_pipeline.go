// Package service 实现业务逻辑层
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
	"pitchlab-server/pkg/util"
)

// AssistantName AI 助手用户的固定名称
// 助手消息都以这个用户的身份落库，首次使用时自动创建
const AssistantName = "AI 助手"

// 各阶段失败时的兜底文案
// 单个阶段失败不拖垮整条流水线，用兜底内容顶替后继续
const (
	fallbackSummary = "总结暂时生成失败，请稍后再试。"
	fallbackPitch   = "这场讨论蕴藏着很大的潜力，继续碰撞下去！"
)

var fallbackTags = []string{"头脑风暴", "协作"}

// RunState 流水线运行状态
type RunState int32

const (
	RunStateScheduled RunState = iota // 已调度，等待延迟窗口结束
	RunStateRunning                   // 正在生成
	RunStateCompleted                 // 全部完成（可能含兜底产物）
	RunStateDegraded                  // 整体失败，只广播了 ai:error
	RunStateCanceled                  // 在开始前被取消
)

// PipelineRun 一次 AI 增强任务
// Trigger 返回后调用方可以通过 Done 等待结束、通过 State 查询结果，
// 也可以在延迟窗口内 Cancel 放弃这次运行
type PipelineRun struct {
	RoomID int64

	state  atomic.Int32
	done   chan struct{}
	cancel context.CancelFunc
}

// State 当前运行状态
func (r *PipelineRun) State() RunState {
	return RunState(r.state.Load())
}

// Done 运行结束时关闭的通道
func (r *PipelineRun) Done() <-chan struct{} {
	return r.done
}

// Cancel 取消运行
// 只在延迟窗口内有效；已经开始生成的运行会继续走完
func (r *PipelineRun) Cancel() {
	r.cancel()
}

func (r *PipelineRun) setState(s RunState) {
	r.state.Store(int32(s))
}

// AugmentScheduler AI 增强调度接口
// 写路径在消息落库后通过它调度一次增强
type AugmentScheduler interface {
	Trigger(roomID int64) *PipelineRun
}

// AIPipeline AI 增强流水线
// 一次运行的流程：等待一个短暂的延迟窗口（让同一波消息聚拢），
// 读取房间最近的讨论，并发生成总结、标签、亮点三种产物，
// 组装成一条助手消息落库，再把消息和三个产物事件广播到房间。
//
// 同一房间同一时刻最多一条流水线在跑：延迟窗口内的重复触发
// 合并到已有的运行上，不会产生第二条助手消息
type AIPipeline struct {
	gen       ArtifactGenerator
	messages  MessageStore
	users     UserStore
	broadcast Broadcaster

	delay    time.Duration // 触发到开始生成之间的延迟窗口
	contextN int           // 作为上下文的最近消息条数

	mu     sync.Mutex
	active map[int64]*PipelineRun // roomID -> 进行中的运行

	log *logrus.Entry
}

// NewAIPipeline 创建 AIPipeline 实例
// 参数:
//   - gen: AI 产物生成器
//   - messages: 消息存储，读上下文、写助手消息
//   - users: 用户存储，查找或创建助手用户
//   - broadcast: 房间广播器
//   - delay: 延迟窗口时长
//   - contextN: 上下文消息条数
func NewAIPipeline(gen ArtifactGenerator, messages MessageStore, users UserStore, broadcast Broadcaster, delay time.Duration, contextN int) *AIPipeline {
	return &AIPipeline{
		gen:       gen,
		messages:  messages,
		users:     users,
		broadcast: broadcast,
		delay:     delay,
		contextN:  contextN,
		active:    make(map[int64]*PipelineRun),
		log:       logrus.WithField("module", "ai_pipeline"),
	}
}

// Trigger 为房间调度一次 AI 增强
// 房间已有进行中的运行时返回该运行，不另起新的
func (p *AIPipeline) Trigger(roomID int64) *PipelineRun {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run, ok := p.active[roomID]; ok {
		return run
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &PipelineRun{
		RoomID: roomID,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	run.setState(RunStateScheduled)
	p.active[roomID] = run

	go p.execute(ctx, run)

	p.log.WithField("room_id", roomID).Debug("AI 流水线已调度")
	return run
}

// execute 执行一次完整的流水线运行
func (p *AIPipeline) execute(ctx context.Context, run *PipelineRun) {
	defer close(run.done)
	defer p.release(run.RoomID)

	// 延迟窗口：给同一波消息留出聚拢的时间，期间可被取消
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		run.setState(RunStateCanceled)
		p.log.WithField("room_id", run.RoomID).Debug("AI 流水线在开始前被取消")
		return
	case <-timer.C:
	}
	run.setState(RunStateRunning)

	// 读取上下文失败是整体失败：没有讨论内容就没有可生成的产物
	msgs, err := p.messages.GetLatestByRoomID(ctx, run.RoomID, p.contextN)
	if err != nil {
		p.fail(run, fmt.Errorf("读取讨论上下文失败: %w", err))
		return
	}

	// 三个阶段并发执行，彼此隔离：任一阶段失败只影响自己的产物
	var wg sync.WaitGroup
	var summary, pitch string
	var tags []string
	var summaryErr, tagsErr, pitchErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		summary, summaryErr = p.gen.GenerateSummary(ctx, msgs)
	}()
	go func() {
		defer wg.Done()
		tags, tagsErr = p.gen.GenerateTags(ctx, msgs)
	}()
	go func() {
		defer wg.Done()
		pitch, pitchErr = p.gen.GeneratePitch(ctx, msgs)
	}()
	wg.Wait()

	if summaryErr != nil {
		p.log.WithError(summaryErr).WithField("room_id", run.RoomID).Warn("总结生成失败，使用兜底文案")
		summary = fallbackSummary
	}
	if tagsErr != nil || len(tags) == 0 {
		if tagsErr != nil {
			p.log.WithError(tagsErr).WithField("room_id", run.RoomID).Warn("标签生成失败，使用兜底标签")
		}
		tags = fallbackTags
	}
	if pitchErr != nil {
		p.log.WithError(pitchErr).WithField("room_id", run.RoomID).Warn("亮点生成失败，使用兜底文案")
		pitch = fallbackPitch
	}

	// 三种产物组装成一条助手消息，像普通消息一样落库再广播
	assistant, err := p.ensureAssistant(ctx)
	if err != nil {
		p.fail(run, fmt.Errorf("获取助手用户失败: %w", err))
		return
	}

	message := &model.Message{
		RoomID:  run.RoomID,
		UserID:  assistant.ID,
		Role:    model.MessageRoleAssistant,
		Content: composeAssistantMessage(summary, tags, pitch),
	}
	if err := p.messages.Create(ctx, message); err != nil {
		p.fail(run, fmt.Errorf("写入助手消息失败: %w", err))
		return
	}
	message.User = assistant

	p.publish(run.RoomID, EventMessageNew, NewMessageView(message))
	p.publish(run.RoomID, EventAISummary, AISummaryPayload{RoomID: run.RoomID, Summary: summary})
	p.publish(run.RoomID, EventAITags, AITagsPayload{RoomID: run.RoomID, Tags: tags})
	p.publish(run.RoomID, EventAIPitch, AIPitchPayload{RoomID: run.RoomID, Pitch: pitch})

	run.setState(RunStateCompleted)
	p.log.WithFields(logrus.Fields{
		"room_id":    run.RoomID,
		"message_id": message.ID,
		"summary":    util.TruncateString(summary, 64),
		"pitch":      util.TruncateString(pitch, 64),
	}).Info("AI 流水线完成")
}

// fail 整体失败：记录日志、广播 ai:error、标记为降级
func (p *AIPipeline) fail(run *PipelineRun, err error) {
	run.setState(RunStateDegraded)
	p.log.WithError(err).WithField("room_id", run.RoomID).Error("AI 流水线失败")
	p.publish(run.RoomID, EventAIError, AIErrorPayload{
		RoomID: run.RoomID,
		Error:  "AI 增强暂时不可用，请稍后再试",
	})
}

// release 运行结束后从进行中表里移除，让后续触发可以开启新的运行
func (p *AIPipeline) release(roomID int64) {
	p.mu.Lock()
	delete(p.active, roomID)
	p.mu.Unlock()
}

// publish 广播事件（广播器未注入时跳过）
func (p *AIPipeline) publish(roomID int64, event string, payload interface{}) {
	if p.broadcast == nil {
		return
	}
	p.broadcast.Publish(roomID, event, payload)
}

// ensureAssistant 查找或创建固定的助手用户
func (p *AIPipeline) ensureAssistant(ctx context.Context) (*model.User, error) {
	assistant, err := p.users.GetAssistant(ctx, AssistantName)
	if err != nil {
		return nil, err
	}
	if assistant != nil {
		return assistant, nil
	}

	assistant = &model.User{
		Name:    AssistantName,
		IsGuest: false,
	}
	if err := p.users.Create(ctx, assistant); err != nil {
		return nil, err
	}
	p.log.WithField("user_id", assistant.ID).Info("助手用户已创建")
	return assistant, nil
}

// composeAssistantMessage 把三种产物拼装成一条助手消息
func composeAssistantMessage(summary string, tags []string, pitch string) string {
	return fmt.Sprintf(
		"🤖 **%s**\n\n📊 **总结**：\n%s\n\n🏷️ **标签**：%s\n\n🎯 **亮点**：\n%s",
		AssistantName,
		summary,
		strings.Join(tags, "、"),
		pitch,
	)
}
