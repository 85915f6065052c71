package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

// Client 封装大模型决策通道。它与规则引擎输出完全相同的 Result 契约，
// 任何失败都由上层的 LLMBacked 转成规则回退，绝不向核心循环传播异常。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建大模型客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}
	sdkConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(sdkConfig),
	}, nil
}

// llmResult 是模型必须返回的 JSON 形状；confidence 为可选字段。
type llmResult struct {
	ChosenStrategy string  `json:"chosen_strategy"`
	RiskMode       string  `json:"risk_mode"`
	Reason         string  `json:"reason"`
	Confidence     float64 `json:"confidence"`
}

// Decide 调用模型产出决策。枚举字段非法时替换为安全默认值
// （ou_arb/normal）并记录日志，这是上游契约被打破的信号。
func (c *Client) Decide(ctx context.Context, tick market.Tick, summary WindowSummary) (Result, error) {
	if c.cfg.Model == "" {
		return Result{}, errors.New("openai model 不能为空")
	}

	prompt, err := BuildPrompt(tick, summary)
	if err != nil {
		return Result{}, err
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return Result{}, errors.New("OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return Result{}, errors.New("OpenAI 返回内容为空")
	}

	parsed, err := parseLLMResult(rawContent)
	if err != nil {
		c.logger.Warn("解析模型决策失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return Result{}, err
	}

	return c.normalize(parsed), nil
}

// normalize 把模型输出收敛到已知枚举，越界值一律替换为安全默认。
func (c *Client) normalize(raw llmResult) Result {
	chosen, ok := ParseStrategyID(raw.ChosenStrategy)
	if !ok {
		c.logger.Warn("模型返回未知策略标识，替换为默认值",
			zap.String("chosen_strategy", raw.ChosenStrategy),
		)
		chosen = StrategyArb
	}

	riskMode, ok := ParseRiskMode(raw.RiskMode)
	if !ok {
		c.logger.Warn("模型返回未知风险档位，替换为默认值",
			zap.String("risk_mode", raw.RiskMode),
		)
		riskMode = RiskNormal
	}

	confidence := raw.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	reason := strings.TrimSpace(raw.Reason)
	if reason == "" {
		reason = "LLM decision"
	}

	return Result{
		Chosen:     chosen,
		RiskMode:   riskMode,
		Reason:     reason,
		Confidence: clamp01(confidence),
	}
}

func parseLLMResult(content string) (llmResult, error) {
	payload, err := extractJSON(content)
	if err != nil {
		return llmResult{}, err
	}

	var parsed llmResult
	if err = json.Unmarshal(payload, &parsed); err != nil {
		return llmResult{}, fmt.Errorf("解析决策JSON失败: %w", err)
	}

	return parsed, nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}

// LLMBacked 组合大模型通道与规则引擎：先尝试模型，失败即回退并在
// 决策理由上追加机器可读的回退标记。回退是唯一的失败出口，不抛错。
type LLMBacked struct {
	rules  *Engine
	client *Client
	logger *zap.Logger
}

// NewLLMBacked 创建带回退的组合决策器。client 为 nil 时等价于纯规则引擎。
func NewLLMBacked(rules *Engine, client *Client, logger *zap.Logger) *LLMBacked {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMBacked{
		rules:  rules,
		client: client,
		logger: logger,
	}
}

// Decide 先走大模型通道，任何失败都回退规则引擎。模型成功时仍把当前
// tick 写入规则引擎的窗口，保证后续回退时记忆没有断层。
func (l *LLMBacked) Decide(tick market.Tick) Result {
	if l.client == nil {
		return l.rules.Decide(tick)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.client.cfg.Timeout)
	defer cancel()

	result, err := l.client.Decide(ctx, tick, l.rules.Summary())
	if err != nil {
		l.logger.Warn("大模型决策失败，回退规则引擎", zap.Error(err))
		fallback := l.rules.Decide(tick)
		fallback.Reason = fmt.Sprintf("%s; llm_fallback:%s", fallback.Reason, compactError(err))
		return fallback
	}

	l.rules.Observe(tick)
	return result
}

// Reset 清空底层规则引擎的记忆窗口。
func (l *LLMBacked) Reset() {
	l.rules.Reset()
}

func compactError(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return msg
}
