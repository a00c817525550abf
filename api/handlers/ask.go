package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/api"
	"github.com/BaSui01/scripturerag/guardrails"
	"github.com/BaSui01/scripturerag/rag"
	"github.com/BaSui01/scripturerag/types"
)

// =============================================================================
// 📖 问答 Handler
// =============================================================================

// Asker 执行一次问答（由 rag.Orchestrator 实现）
type Asker interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
}

// TextLister 列出可检索的语料（由 rag.CorpusStore 实现）
type TextLister interface {
	ListTexts() []rag.CorpusStat
}

// QueryHandler 处理 /api/ask 与 /api/texts
type QueryHandler struct {
	asker     Asker
	texts     TextLister
	validator guardrails.Validator
	logger    *zap.Logger
}

// NewQueryHandler 创建问答处理器。validator 为 nil 时使用默认的问题校验链。
func NewQueryHandler(asker Asker, texts TextLister, validator guardrails.Validator, logger *zap.Logger) *QueryHandler {
	if validator == nil {
		validator = guardrails.NewQuestionGuard(guardrails.DefaultMaxQuestionLength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		asker:     asker,
		texts:     texts,
		validator: validator,
		logger:    logger.With(zap.String("handler", "query")),
	}
}

// HandleAsk 处理 POST /api/ask
// @Summary 经文问答
// @Description 在全部语料、单一语料或多个语料中检索经文并生成回答
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AskRequest true "问答请求"
// @Success 200 {object} Response{data=api.AskResponse} "回答"
// @Failure 400 {object} Response "请求无效"
// @Failure 502 {object} Response "生成或嵌入提供者失败"
// @Security ApiKeyAuth
// @Router /api/ask [post]
func (h *QueryHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result, err := h.validator.Validate(r.Context(), req.Question)
	if err != nil {
		WriteProcessingError(w, r, err, h.logger)
		return
	}
	if !result.Valid {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, result.FirstError(), h.logger)
		return
	}

	// 范围冲突在进入检索前拒绝
	if _, err := rag.ResolveScope(req.TextFilter, req.CompareTexts); err != nil {
		WriteProcessingError(w, r, err, h.logger)
		return
	}

	out, err := h.asker.Query(r.Context(), rag.QueryRequest{
		Question:     req.Question,
		TextFilter:   req.TextFilter,
		CompareTexts: req.CompareTexts,
		History:      req.ChatHistory,
	})
	if err != nil {
		WriteProcessingError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, toAskResponse(out))
}

// HandleTexts 处理 GET /api/texts
// @Summary 语料列表
// @Description 列出索引中的语料、所属传统与条目数
// @Tags 问答
// @Produce json
// @Success 200 {object} Response{data=api.TextsResponse} "语料列表"
// @Router /api/texts [get]
func (h *QueryHandler) HandleTexts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, h.logger) {
		return
	}

	stats := h.texts.ListTexts()
	resp := api.TextsResponse{Texts: make([]api.TextInfo, 0, len(stats))}
	for _, s := range stats {
		resp.Texts = append(resp.Texts, api.TextInfo{
			Name:       s.Name,
			Tradition:  s.Tradition,
			EntryCount: s.EntryCount,
		})
	}
	WriteSuccess(w, r, resp)
}

func toAskResponse(res *rag.QueryResult) api.AskResponse {
	resp := api.AskResponse{
		Query:       res.Query,
		Answer:      res.Answer,
		Verses:      make([]api.Verse, 0, len(res.Citations)),
		CompareMode: res.CompareMode,
		Outcome:     string(res.Outcome),
		RawResponse: res.RawResponse,
	}
	if res.TextFilter != "" {
		filter := res.TextFilter
		resp.TextFilter = &filter
	}
	for _, c := range res.Citations {
		resp.Verses = append(resp.Verses, api.Verse{
			TextName:          c.TextName,
			Section:           c.Section,
			Chapter:           c.Chapter,
			Verse:             c.Verse,
			Translation:       c.Translation,
			TranslationSource: c.TranslationSource,
			Tradition:         c.Tradition,
			RelevanceScore:    c.RelevanceScore,
		})
	}
	return resp
}
