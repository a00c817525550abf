package guardrails

import "context"

// Validator 验证器接口
type Validator interface {
	// Validate 执行验证，返回验证结果
	Validate(ctx context.Context, content string) (*ValidationResult, error)
	// Name 返回验证器名称
	Name() string
	// Priority 返回优先级（数字越小优先级越高）
	Priority() int
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// NewValidationResult 创建一个有效的验证结果
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []string{},
		Metadata: make(map[string]any),
	}
}

// AddError 添加验证错误并将结果标记为无效
func (r *ValidationResult) AddError(err ValidationError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning 添加警告信息
func (r *ValidationResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// Merge 合并另一个验证结果
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	if !other.Valid {
		r.Valid = false
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	for k, v := range other.Metadata {
		r.Metadata[k] = v
	}
}

// FirstError 返回第一条错误消息，结果有效时为空
func (r *ValidationResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// ValidationError 验证错误
type ValidationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // critical, high, medium, low
	Field    string `json:"field,omitempty"`
}

// Severity 常量定义
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Error 错误代码常量
const (
	ErrCodeEmptyInput        = "EMPTY_INPUT"
	ErrCodeMaxLengthExceeded = "MAX_LENGTH_EXCEEDED"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
)
