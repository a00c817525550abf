package guardrails

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxQuestionLength 问题的默认最大字符数
const DefaultMaxQuestionLength = 500

// QuestionLengthValidator 问题长度验证器。
// 去除首尾空白后为空，或超过最大字符数（按 rune 计）时拒绝。
type QuestionLengthValidator struct {
	maxLength int
	priority  int
}

// NewQuestionLengthValidator 创建长度验证器，maxLength <= 0 时使用默认值
func NewQuestionLengthValidator(maxLength int) *QuestionLengthValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxQuestionLength
	}
	return &QuestionLengthValidator{maxLength: maxLength, priority: 10}
}

// Name 返回验证器名称
func (v *QuestionLengthValidator) Name() string {
	return "question_length_validator"
}

// Priority 返回优先级
func (v *QuestionLengthValidator) Priority() int {
	return v.priority
}

// MaxLength 返回配置的最大长度
func (v *QuestionLengthValidator) MaxLength() int {
	return v.maxLength
}

// Validate 执行长度验证
func (v *QuestionLengthValidator) Validate(ctx context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		result.AddError(ValidationError{
			Code:     ErrCodeEmptyInput,
			Message:  "Question cannot be empty",
			Severity: SeverityHigh,
			Field:    "question",
		})
		return result, nil
	}

	n := utf8.RuneCountInString(trimmed)
	if n > v.maxLength {
		result.Metadata["length"] = n
		result.Metadata["max_length"] = v.maxLength
		result.AddError(ValidationError{
			Code:     ErrCodeMaxLengthExceeded,
			Message:  fmt.Sprintf("Question too long (max %d characters)", v.maxLength),
			Severity: SeverityHigh,
			Field:    "question",
		})
	}
	return result, nil
}
