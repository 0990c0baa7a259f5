// Package service 实现业务逻辑层
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pitchlab-server/internal/model"
)

// DashScope API Endpoint
const QwenEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// TextCompleter 文本补全接口
// AI 生成的底层能力抽象，测试时用固定返回值的实现替换真实 API
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// QwenClient 阿里云 DashScope Qwen 模型的 HTTP 客户端
type QwenClient struct {
	apiKey string
	model  string
	client *http.Client
}

// NewQwenClient 创建 QwenClient 实例
func NewQwenClient(apiKey, model string) *QwenClient {
	return &QwenClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: 30 * time.Second, // 设置超时
		},
	}
}

// DashScopeRequest 阿里云 API 请求结构
type DashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []DashScopeMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		ResultFormat string `json:"result_format"` // "message"
	} `json:"parameters"`
}

type DashScopeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DashScopeResponse 阿里云 API 响应结构
type DashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message DashScopeMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Complete 调用 Qwen 补全一段文本
// 参数:
//   - ctx: 上下文，控制超时和取消
//   - systemPrompt: 系统提示词
//   - userPrompt: 用户提示词
//
// 返回:
//   - string: 模型生成的文本（去除首尾空白和 Markdown 代码块标记）
//   - error: 配置缺失、网络或 API 错误
func (c *QwenClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("AI service not configured (missing API Key)")
	}

	// 1. 构造请求 Body
	dashReq := DashScopeRequest{
		Model: c.model,
	}
	dashReq.Input.Messages = []DashScopeMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	dashReq.Parameters.ResultFormat = "message"

	jsonData, err := json.Marshal(dashReq)
	if err != nil {
		return "", err
	}

	// 2. 发送 HTTP 请求
	httpReq, err := http.NewRequestWithContext(ctx, "POST", QwenEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call AI service: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// 3. 解析响应
	var dashResp DashScopeResponse
	if err := json.Unmarshal(bodyBytes, &dashResp); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}

	if dashResp.Code != "" {
		return "", fmt.Errorf("AI service error: %s - %s", dashResp.Code, dashResp.Message)
	}

	if len(dashResp.Output.Choices) == 0 {
		return "", errors.New("AI returned no content")
	}

	content := dashResp.Output.Choices[0].Message.Content
	content = strings.TrimSpace(content)

	// 4. 后处理（移除可能存在的 Markdown 代码块标记，尽管 Prompt 要求不要有）
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	return content, nil
}

// ArtifactGenerator AI 产物生成接口
// 流水线依赖它生成三种产物，测试时用固定实现替换
type ArtifactGenerator interface {
	GenerateSummary(ctx context.Context, messages []model.Message) (string, error)
	GenerateTags(ctx context.Context, messages []model.Message) ([]string, error)
	GeneratePitch(ctx context.Context, messages []model.Message) (string, error)
}

// AIService 把房间讨论转换为三种 AI 产物：总结、标签、亮点陈述
// 三个生成方法彼此独立，流水线并发调用它们
type AIService struct {
	llm TextCompleter
}

// NewAIService 创建 AIService 实例
func NewAIService(llm TextCompleter) *AIService {
	return &AIService{llm: llm}
}

// GenerateSummary 生成讨论总结
// 空讨论不调用模型，直接返回占位文案
func (s *AIService) GenerateSummary(ctx context.Context, messages []model.Message) (string, error) {
	if len(messages) == 0 {
		return "还没有讨论内容。", nil
	}

	systemPrompt := "你是一个头脑风暴助手。请用 2-3 句话总结下面的讨论内容，" +
		"突出核心想法和讨论的走向。直接输出总结文本，不要使用 Markdown 代码块。"

	return s.llm.Complete(ctx, systemPrompt, renderTranscript(messages))
}

// GenerateTags 生成讨论标签
// 模型返回逗号分隔的关键词列表，解析后最多保留 5 个
func (s *AIService) GenerateTags(ctx context.Context, messages []model.Message) ([]string, error) {
	if len(messages) == 0 {
		return []string{"新话题"}, nil
	}

	systemPrompt := "你是一个头脑风暴助手。请为下面的讨论提取 3-5 个关键词标签，" +
		"用逗号分隔，不要编号，不要解释，不要带 # 号。"

	raw, err := s.llm.Complete(ctx, systemPrompt, renderTranscript(messages))
	if err != nil {
		return nil, err
	}
	return parseTags(raw), nil
}

// GeneratePitch 生成一句话亮点陈述
func (s *AIService) GeneratePitch(ctx context.Context, messages []model.Message) (string, error) {
	if len(messages) == 0 {
		return "这里即将诞生一个好点子。", nil
	}

	systemPrompt := "你是一个头脑风暴助手。请把下面讨论中最有潜力的想法提炼成一句" +
		"有感染力的电梯陈述（pitch）。直接输出这一句话，不要使用 Markdown 代码块。"

	return s.llm.Complete(ctx, systemPrompt, renderTranscript(messages))
}

// renderTranscript 把消息列表渲染为提示词中的对话记录
// 每行一条，格式为 "发送者: 内容"，AI 助手的消息标注为 [助手]
func renderTranscript(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		name := "匿名"
		if m.User != nil {
			name = m.User.Name
		}
		if m.Role == model.MessageRoleAssistant {
			name = "[助手] " + name
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// parseTags 解析模型返回的标签文本
// 兼容中英文逗号和顿号分隔，去掉编号和 # 前缀，最多保留 5 个
func parseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == '\n'
	})

	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.TrimSpace(f)
		tag = strings.TrimPrefix(tag, "#")
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == 5 {
			break
		}
	}
	return tags
}
