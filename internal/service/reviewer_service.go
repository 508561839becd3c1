package service

import (
	"context"
	"fmt"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/monitoring"

	openai "github.com/sashabaranov/go-openai"
)

// ReviewRequest 文件审阅请求：审阅的对象是已经落入对象存储的文件引用，
// 不是内存中的字节
type ReviewRequest struct {
	FileURL         string
	FileName        string
	Requirement     string
	QuestionNumber  int
	RespondentEmail string
}

// ReasonRequest 材料缺失说明的评估请求
type ReasonRequest struct {
	Justification   string
	Requirement     string
	QuestionNumber  int
	RespondentEmail string
}

// DocumentReviewer 自动审阅协作方：文件审阅 + 缺失说明评估，
// 两者都只返回自由文本反馈
type DocumentReviewer interface {
	ReviewDocument(ctx context.Context, req ReviewRequest) (string, error)
	EvaluateReason(ctx context.Context, req ReasonRequest) (string, error)
}

// ReviewerService 通过 OpenAI 兼容接口实现自动审阅。
// 上游不可达或响应异常一律包装为可重试的上游错误，调用方状态不变。
type ReviewerService struct {
	client *openai.Client
	model  string
}

func NewReviewerService(cfg config.ReviewerConfig) *ReviewerService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &ReviewerService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

const reviewerSystemPrompt = "你是职业健康安全（OHS）供应商审核的材料审阅助理。" +
	"委托方要求供应商针对问卷中的问题提交证明材料，你负责判断提交内容是否满足要求，" +
	"并用简洁、具体的中文反馈告诉供应商：材料是否可以接受，不可接受时缺了什么、应补充什么。"

func (s *ReviewerService) ReviewDocument(ctx context.Context, req ReviewRequest) (string, error) {
	prompt := fmt.Sprintf(
		"问卷第 %d 题要求提交的材料：%s\n供应商（%s）上传了文件 %q，存储引用：%s\n"+
			"请根据文件名与材料要求给出审阅反馈：该文件是否可能满足要求？若不满足应如何补充？",
		req.QuestionNumber, req.Requirement, req.RespondentEmail, req.FileName, req.FileURL,
	)
	return s.chat(ctx, prompt)
}

func (s *ReviewerService) EvaluateReason(ctx context.Context, req ReasonRequest) (string, error) {
	prompt := fmt.Sprintf(
		"问卷第 %d 题要求提交的材料：%s\n供应商（%s）表示无法提供该材料，理由如下：\n%s\n"+
			"请评估这个理由是否成立，并给出反馈：接受该理由，还是建议供应商补充材料或转交人工审核。",
		req.QuestionNumber, req.Requirement, req.RespondentEmail, req.Justification,
	)
	return s.chat(ctx, prompt)
}

func (s *ReviewerService) chat(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		monitoring.ReviewCallCounter.WithLabelValues("reviewer", "error").Inc()
		return "", util.Upstream("reviewer service call failed", err)
	}
	if len(resp.Choices) == 0 {
		monitoring.ReviewCallCounter.WithLabelValues("reviewer", "error").Inc()
		return "", util.Upstream("reviewer returned no choices", nil)
	}
	monitoring.ReviewCallCounter.WithLabelValues("reviewer", "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}
