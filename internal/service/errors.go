package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 订单不存在；属于正常结果，不按错误级别记录
var ErrNotFound = errors.New("order not found")

// NotFoundError 携带排查信息的未命中结果，仅用于辅助运维，不是稳定的接口契约
type NotFoundError struct {
	ID          string   `json:"searchedId"`
	TotalOrders int64    `json:"totalOrders"`
	SampleIDs   []string `json:"sampleIds,omitempty"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %q not found (%d orders in store)", e.ID, e.TotalOrders)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError 输入不合法，直接返回给调用方
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// ValidationErrors 多个字段的校验错误
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields 字段 -> 原因
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Field] = e.Reason
	}
	return out
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation 判断是否为输入校验错误
func IsValidation(err error) bool {
	var one *ValidationError
	var many ValidationErrors
	return errors.As(err, &one) || errors.As(err, &many)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
