package util

import (
	"errors"
	"fmt"
)

// ErrorKind 核心错误分类：校验失败在落库前拒绝；非法状态转换不改动会话；
// 上游服务错误可重试，会话保持调用前状态；持久化错误对当前操作是致命的。
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindUpstream          ErrorKind = "upstream"
	KindPersistence       ErrorKind = "persistence"
	KindNotFound          ErrorKind = "not_found"
)

type AppError struct {
	Kind   ErrorKind
	Reason string // 给调用方的具体原因码
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(reason string) *AppError {
	return &AppError{Kind: KindValidation, Reason: reason}
}

func InvalidTransition(reason string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Reason: reason}
}

func Upstream(reason string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Reason: reason, Err: err}
}

func Persistence(err error) *AppError {
	return &AppError{Kind: KindPersistence, Reason: "store unavailable", Err: err}
}

func NotFoundErr(reason string) *AppError {
	return &AppError{Kind: KindNotFound, Reason: reason}
}

// KindOf 取出错误分类，未分类的一律按持久化错误处理
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrUserNotFound) {
		return KindNotFound
	}
	return KindPersistence
}

var (
	ErrEmailRegistered = errors.New("该邮箱已被注册")
	ErrUserNotFound    = errors.New("用户不存在")
)
