package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/guardrails"
	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/tokenizer"
	"github.com/BaSui01/scripturerag/types"
)

const instrumentationName = "github.com/BaSui01/scripturerag/rag"

// 检索默认值
const (
	DefaultTopK               = 8
	DefaultScoreThreshold     = 0.3
	DefaultUnscopedMinTopK    = 12
	DefaultHistoryMaxMessages = 6
	DefaultHistoryMaxChars    = 800
)

// Outcome 一次问答的结局
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeRefusedAdvice     Outcome = "refused_advice"
	OutcomeRefusedNoEvidence Outcome = "refused_no_evidence"
)

// Retriever 范围检索，CorpusStore 满足该接口
type Retriever interface {
	Search(ctx context.Context, query string, topK int, scope Scope) ([]SearchResult, error)
}

// QueryObserver 接收问答的观测数据
type QueryObserver interface {
	ObserveQuery(mode string, outcome string, duration time.Duration)
	ObserveGeneration(provider, model, status string, duration time.Duration, usage llm.Usage)
}

type nopQueryObserver struct{}

func (nopQueryObserver) ObserveQuery(string, string, time.Duration)                         {}
func (nopQueryObserver) ObserveGeneration(string, string, string, time.Duration, llm.Usage) {}

// OrchestratorConfig 问答流程参数
type OrchestratorConfig struct {
	TopK               int
	ScoreThreshold     float64
	UnscopedMinTopK    int
	HistoryMaxMessages int
	HistoryMaxChars    int
	Model              string
	Generation         llm.GenerationConfig
}

// DefaultOrchestratorConfig 返回默认参数
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TopK:               DefaultTopK,
		ScoreThreshold:     DefaultScoreThreshold,
		UnscopedMinTopK:    DefaultUnscopedMinTopK,
		HistoryMaxMessages: DefaultHistoryMaxMessages,
		HistoryMaxChars:    DefaultHistoryMaxChars,
		Generation:         llm.DefaultGenerationConfig(),
	}
}

// QueryRequest 一次问答请求
type QueryRequest struct {
	Question     string
	TextFilter   string
	CompareTexts []string
	History      []types.ConversationTurn
	// TopK 为 0 时使用配置值
	TopK int
}

// Citation 引用的经文及其相关度
type Citation struct {
	TextName          string  `json:"text_name"`
	Section           string  `json:"section"`
	Chapter           string  `json:"chapter"`
	Verse             string  `json:"verse"`
	Translation       string  `json:"translation"`
	TranslationSource string  `json:"translation_source"`
	Tradition         string  `json:"tradition"`
	RelevanceScore    float64 `json:"relevance_score"`
}

// QueryResult 问答结果，每次调用新建
type QueryResult struct {
	Query       string     `json:"query"`
	Answer      string     `json:"answer"`
	Citations   []Citation `json:"verses"`
	TextFilter  string     `json:"text_filter,omitempty"`
	CompareMode bool       `json:"compare_mode"`
	RawResponse string     `json:"raw_response"`
	Outcome     Outcome    `json:"outcome"`
	Usage       llm.Usage  `json:"usage"`
}

// OrchestratorOption 配置 Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithQueryObserver 设置观测者
func WithQueryObserver(o QueryObserver) OrchestratorOption {
	return func(r *Orchestrator) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithTokenizer 设置提示词 token 计数器
func WithTokenizer(t tokenizer.Tokenizer) OrchestratorOption {
	return func(r *Orchestrator) {
		r.tokenizer = t
	}
}

// WithClassifier 替换建议检测器
func WithClassifier(c *guardrails.AdviceClassifier) OrchestratorOption {
	return func(r *Orchestrator) {
		if c != nil {
			r.classifier = c
		}
	}
}

// Orchestrator 问答编排：护栏 → 范围解析 → 检索 → 阈值过滤 → 组装提示 → 生成。
// 无状态，可并发调用。
type Orchestrator struct {
	retriever  Retriever
	generator  llm.Provider
	classifier *guardrails.AdviceClassifier
	tokenizer  tokenizer.Tokenizer
	cfg        OrchestratorConfig
	observer   QueryObserver
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(retriever Retriever, generator llm.Provider, cfg OrchestratorConfig, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.UnscopedMinTopK <= 0 {
		cfg.UnscopedMinTopK = DefaultUnscopedMinTopK
	}
	if cfg.Generation == (llm.GenerationConfig{}) {
		cfg.Generation = llm.DefaultGenerationConfig()
	}

	r := &Orchestrator{
		retriever:  retriever,
		generator:  generator,
		classifier: guardrails.NewAdviceClassifier(nil),
		cfg:        cfg,
		observer:   nopQueryObserver{},
		tracer:     otel.Tracer(instrumentationName),
		logger:     logger.With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config 返回当前参数
func (r *Orchestrator) Config() OrchestratorConfig { return r.cfg }

// Query 执行一次问答。提供者失败以 PROVIDER_FAILURE 错误返回，绝不作为回答文本。
func (r *Orchestrator) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "Question cannot be empty").WithHTTPStatus(http.StatusBadRequest)
	}

	scope, err := ResolveScope(req.TextFilter, req.CompareTexts)
	if err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "rag.query", trace.WithAttributes(
		attribute.String("rag.scope", scope.Kind().String()),
		attribute.StringSlice("rag.corpora", scope.Names()),
	))
	defer span.End()

	result, err := r.run(ctx, question, scope, req)
	mode := scope.Kind().String()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observer.ObserveQuery(mode, "error", time.Since(start))
		r.logger.Error("query failed",
			zap.String("scope", mode),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("rag.outcome", string(result.Outcome)),
		attribute.Int("rag.citations", len(result.Citations)),
	)
	r.observer.ObserveQuery(mode, string(result.Outcome), time.Since(start))
	r.logger.Info("query answered",
		zap.String("scope", mode),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("citations", len(result.Citations)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

func (r *Orchestrator) run(ctx context.Context, question string, scope Scope, req QueryRequest) (*QueryResult, error) {
	// 护栏：命中后不调用任何提供者
	if verdict := r.classifier.Classify(question); verdict.Flagged() {
		r.logger.Debug("advice-seeking question refused", zap.String("marker", verdict.Marker))
		return cannedResult(question, scope, PrescriptionAnswer, OutcomeRefusedAdvice), nil
	}

	topK := req.TopK
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	if scope.IsUnscoped() && topK < r.cfg.UnscopedMinTopK {
		topK = r.cfg.UnscopedMinTopK
	}

	retrieveCtx, retrieveSpan := r.tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(attribute.Int("rag.top_k", topK)))
	retrieved, err := r.retriever.Search(retrieveCtx, question, topK, scope)
	retrieveSpan.End()
	if err != nil {
		return nil, providerFailure("retrieval", err)
	}

	relevant := FilterByScore(retrieved, r.cfg.ScoreThreshold)
	r.logger.Debug("retrieved passages",
		zap.Int("retrieved", len(retrieved)),
		zap.Int("relevant", len(relevant)),
		zap.Float64("threshold", r.cfg.ScoreThreshold),
	)
	if len(relevant) == 0 {
		return cannedResult(question, scope, NoEvidenceAnswer, OutcomeRefusedNoEvidence), nil
	}

	history := FormatHistory(req.History, r.cfg.HistoryMaxMessages, r.cfg.HistoryMaxChars)
	userMessage := BuildUserMessage(question, scope, FormatContext(relevant), history)
	systemPrompt := SystemPromptFor(scope)
	r.checkPromptSize(systemPrompt, userMessage)

	resp, err := r.generate(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, providerFailure("generation", err)
	}

	return &QueryResult{
		Query:       question,
		Answer:      resp.Text,
		Citations:   citationsFor(relevant),
		TextFilter:  scope.Filter(),
		CompareMode: scope.CompareMode(),
		RawResponse: resp.Text,
		Outcome:     OutcomeAnswered,
		Usage:       resp.Usage,
	}, nil
}

func (r *Orchestrator) generate(ctx context.Context, system, user string) (*llm.GenerateResponse, error) {
	ctx, span := r.tracer.Start(ctx, "rag.generate", trace.WithAttributes(
		attribute.String("llm.provider", r.generator.Name()),
		attribute.String("llm.model", r.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := r.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  r.cfg.Model,
		System: system,
		User:   user,
		Config: r.cfg.Generation,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observer.ObserveGeneration(r.generator.Name(), r.cfg.Model, "error", time.Since(start), llm.Usage{})
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("llm.tokens.prompt", resp.Usage.PromptTokens),
		attribute.Int("llm.tokens.completion", resp.Usage.CompletionTokens),
	)
	r.observer.ObserveGeneration(r.generator.Name(), resp.Model, "success", time.Since(start), resp.Usage)
	return resp, nil
}

// checkPromptSize 提示词超过模型上下文时只告警，交给上游决定
func (r *Orchestrator) checkPromptSize(system, user string) {
	if r.tokenizer == nil {
		return
	}
	n, err := r.tokenizer.CountTokens(system + "\n" + user)
	if err != nil {
		r.logger.Debug("token count failed", zap.Error(err))
		return
	}
	if window := r.tokenizer.MaxTokens(); window > 0 && n+r.cfg.Generation.MaxOutputTokens > window {
		r.logger.Warn("prompt may exceed model context",
			zap.Int("prompt_tokens", n),
			zap.Int("max_output_tokens", r.cfg.Generation.MaxOutputTokens),
			zap.Int("context_window", window),
		)
	}
}

// FilterByScore 保留得分不低于阈值的结果，保持原有顺序
func FilterByScore(results []SearchResult, threshold float64) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= threshold {
			out = append(out, res)
		}
	}
	return out
}

func citationsFor(results []SearchResult) []Citation {
	out := make([]Citation, len(results))
	for i, res := range results {
		out[i] = Citation{
			TextName:          res.TextName,
			Section:           res.Section,
			Chapter:           res.Chapter,
			Verse:             res.Verse,
			Translation:       res.Translation,
			TranslationSource: res.TranslationSource,
			Tradition:         res.Tradition,
			RelevanceScore:    RoundScore(res.Score),
		}
	}
	return out
}

func cannedResult(question string, scope Scope, answer string, outcome Outcome) *QueryResult {
	return &QueryResult{
		Query:       question,
		Answer:      answer,
		Citations:   []Citation{},
		TextFilter:  scope.Filter(),
		CompareMode: scope.CompareMode(),
		Outcome:     outcome,
	}
}

// providerFailure 把检索或生成阶段的错误统一为 PROVIDER_FAILURE；
// 调用方取消、参数错误与已分类的失败原样返回。
func providerFailure(stage string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if e, ok := types.AsError(err); ok {
		switch e.Code {
		case types.ErrProviderFailure, types.ErrInvalidRequest:
			return err
		}
		return types.NewError(types.ErrProviderFailure, fmt.Sprintf("%s failed", stage)).
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(e.Provider)
	}
	return types.NewError(types.ErrProviderFailure, fmt.Sprintf("%s failed", stage)).
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway)
}
