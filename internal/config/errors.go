package config

import "fmt"

// FieldError 标记校验失败的具体字段，CLI 据此提示用户修改哪一项。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("配置字段 %s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}
