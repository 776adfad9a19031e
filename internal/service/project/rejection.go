package project

import "fmt"

// Code 标识一次校验拒绝的原因
type Code string

const (
	CodeEmpty        Code = "EMPTY"
	CodeTooShort     Code = "TOO_SHORT"
	CodeDuplicate    Code = "DUPLICATE"
	CodeEmptyName    Code = "EMPTY_NAME"
	CodeInvalidDate  Code = "INVALID_DATE"
	CodeOutOfRange   Code = "OUT_OF_RANGE"
	CodeRangeInvalid Code = "RANGE_INVALID"
)

// Rejection 是同步校验失败：变更未应用，Message 直接展示给用户
type Rejection struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Is 允许 errors.Is(err, &Rejection{Code: CodeDuplicate}) 按 code 匹配
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	return t.Code == r.Code
}

func reject(code Code, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Advisory 是非阻塞提示：变更照常应用
type Advisory string

const AdvisoryNoCriteria Advisory = "no acceptance criteria defined"
