package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/monitoring"
)

// TranscriptEntry 访谈记录中的一条问答，按题库顺序排列
type TranscriptEntry struct {
	QuestionNumber int    `json:"questionNumber"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

// ScoringResult 评分服务的结构化结果。上游返回纯文本时降级：
// Summary 保留原文，Score 为空。
type ScoringResult struct {
	Score      *int     `json:"score,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// Scorer 把完整问答记录交给外部总结/评分服务
type Scorer interface {
	Score(ctx context.Context, transcript []TranscriptEntry) (*ScoringResult, error)
}

// ScoringService 调用 OpenAI 兼容接口对访谈全文做总结评分。
// 网络失败或非 200 返回可重试错误；拿到响应但不是预期结构时
// 降级为不带分数的纯文本总结，绝不因此报错。
type ScoringService struct {
	config config.ScoringConfig
	client *http.Client
}

func NewScoringService(cfg config.ScoringConfig) *ScoringService {
	return &ScoringService{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type scoringChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type scoringChatRequest struct {
	Model    string               `json:"model"`
	Messages []scoringChatMessage `json:"messages"`
}

type scoringChatResponse struct {
	Choices []struct {
		Message scoringChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// scoringPayload 期望模型按该结构输出 JSON
type scoringPayload struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Score      *int     `json:"score"`
}

const scoringSystemPrompt = "你是职业健康安全（OHS）供应商审核评估专家。" +
	"根据以下问卷问答记录，对该供应商的职业健康安全管理水平做出总结。" +
	"请严格以 JSON 输出：{\"strengths\":[\"…\"],\"weaknesses\":[\"…\"],\"score\":0到100的整数}。" +
	"strengths 列出做得好的方面，weaknesses 列出不足与改进建议，不要输出 JSON 以外的内容。"

func (s *ScoringService) Score(ctx context.Context, transcript []TranscriptEntry) (*ScoringResult, error) {
	var sb strings.Builder
	for _, e := range transcript {
		fmt.Fprintf(&sb, "Q%d: %s\nA: %s\n", e.QuestionNumber, e.Question, e.Answer)
	}

	reqBody := scoringChatRequest{
		Model: s.config.Model,
		Messages: []scoringChatMessage{
			{Role: "system", Content: scoringSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, util.Upstream("scoring request encode failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, util.Upstream("scoring request build failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.ReviewCallCounter.WithLabelValues("scoring", "error").Inc()
		return nil, util.Upstream("scoring service unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		monitoring.ReviewCallCounter.WithLabelValues("scoring", "error").Inc()
		return nil, util.Upstream(fmt.Sprintf("scoring service returned status %d", resp.StatusCode), nil)
	}

	monitoring.ReviewCallCounter.WithLabelValues("scoring", "ok").Inc()

	var chatResp scoringChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		// 响应不是预期的结构：整体当作不带分数的总结文本
		return &ScoringResult{Summary: string(body)}, nil
	}

	content := chatResp.Choices[0].Message.Content
	if result, ok := parseScoringContent(content); ok {
		return result, nil
	}
	return &ScoringResult{Summary: content}, nil
}

// parseScoringContent 尝试把模型输出解析为结构化评分，
// 兼容 ```json 代码块包裹的情况；解析失败返回 false 让调用方降级
func parseScoringContent(content string) (*ScoringResult, bool) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var payload scoringPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, false
	}
	if payload.Score == nil && len(payload.Strengths) == 0 && len(payload.Weaknesses) == 0 {
		return nil, false
	}
	if payload.Score != nil {
		if *payload.Score < 0 {
			*payload.Score = 0
		}
		if *payload.Score > 100 {
			*payload.Score = 100
		}
	}
	return &ScoringResult{
		Score:      payload.Score,
		Strengths:  payload.Strengths,
		Weaknesses: payload.Weaknesses,
	}, true
}
