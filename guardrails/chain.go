package guardrails

import (
	"context"
	"sort"
	"sync"
)

// ChainMode 验证器链执行模式
type ChainMode string

const (
	// ChainModeFailFast 遇到第一个无效结果立即停止
	ChainModeFailFast ChainMode = "fail_fast"
	// ChainModeCollectAll 执行所有验证器并收集所有结果
	ChainModeCollectAll ChainMode = "collect_all"
)

// ValidatorChain 按优先级顺序执行多个验证器并聚合结果
type ValidatorChain struct {
	validators []Validator
	mode       ChainMode
	mu         sync.RWMutex
}

// NewValidatorChain 创建验证器链，mode 为空时使用 ChainModeCollectAll
func NewValidatorChain(mode ChainMode, validators ...Validator) *ValidatorChain {
	if mode == "" {
		mode = ChainModeCollectAll
	}
	c := &ValidatorChain{mode: mode}
	c.Add(validators...)
	return c
}

// NewQuestionGuard 问答入口使用的请求校验链（HTTP 与 CLI 共用）。
// 建议类问题不在链中：它们由编排器返回固定回答，而不是 400。
func NewQuestionGuard(maxLength int, extra ...Validator) *ValidatorChain {
	return NewValidatorChain(ChainModeFailFast,
		append([]Validator{NewQuestionLengthValidator(maxLength)}, extra...)...)
}

// Name 返回验证器链名称
func (c *ValidatorChain) Name() string {
	return "validator_chain"
}

// Priority 链本身优先级最高
func (c *ValidatorChain) Priority() int {
	return 0
}

// Add 添加验证器
func (c *ValidatorChain) Add(validators ...Validator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range validators {
		if v != nil {
			c.validators = append(c.validators, v)
		}
	}
}

// Len 返回验证器数量
func (c *ValidatorChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.validators)
}

// Validators 返回按优先级排序的验证器列表
func (c *ValidatorChain) Validators() []Validator {
	c.mu.RLock()
	sorted := make([]Validator, len(c.validators))
	copy(sorted, c.validators)
	c.mu.RUnlock()

	sortValidatorsByPriority(sorted)
	return sorted
}

// Validate 按优先级执行验证器链
func (c *ValidatorChain) Validate(ctx context.Context, content string) (*ValidationResult, error) {
	validators := c.Validators()
	c.mu.RLock()
	mode := c.mode
	c.mu.RUnlock()

	result := NewValidationResult()
	executed := make([]string, 0, len(validators))

	for _, v := range validators {
		if err := ctx.Err(); err != nil {
			result.AddError(ValidationError{
				Code:     ErrCodeValidationFailed,
				Message:  "validation canceled: " + err.Error(),
				Severity: SeverityMedium,
			})
			result.Metadata["validators_executed"] = executed
			return result, err
		}

		vResult, err := v.Validate(ctx, content)
		if err != nil {
			result.AddError(ValidationError{
				Code:     ErrCodeValidationFailed,
				Message:  "validator " + v.Name() + " failed: " + err.Error(),
				Severity: SeverityCritical,
			})
			if mode == ChainModeFailFast {
				result.Metadata["validators_executed"] = executed
				return result, err
			}
			continue
		}

		executed = append(executed, v.Name())
		result.Merge(vResult)

		if mode == ChainModeFailFast && !vResult.Valid {
			break
		}
	}

	result.Metadata["validators_executed"] = executed
	return result, nil
}

// sortValidatorsByPriority 稳定排序，同优先级保持添加顺序
func sortValidatorsByPriority(validators []Validator) {
	sort.SliceStable(validators, func(i, j int) bool {
		return validators[i].Priority() < validators[j].Priority()
	})
}
