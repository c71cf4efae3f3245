package domain

import "errors"

// 错误分类（taxonomy）
// HTTP 层根据哨兵错误映射到 4xx/5xx，Service/Repository 层用 %w 包装
var (
	// ErrValidation 必填字段缺失或格式非法
	ErrValidation = errors.New("validation error")

	// ErrNotFound 实体/公司/角色不存在（或已停用）
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized 操作者缺少权限key或角色
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition 当前状态下该操作不合法
	// 条件更新影响 0 行时也返回该错误（并发决策竞争的防护，见 repository 层）
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflict 唯一键冲突（非预期的 upsert 更新路径）
	ErrConflict = errors.New("conflict")
)
