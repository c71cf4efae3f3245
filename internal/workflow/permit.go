// Package workflow 实现许可证/访客的状态机校验
// 纯函数、表驱动，不做任何 I/O；持久化前置检查由 repository 层的条件更新兜底
package workflow

import (
	"fmt"

	"sitepass/internal/domain"
)

// Actor 执行操作的用户（从 JWT + 角色表解析）
type Actor struct {
	UserID      string
	RoleCode    string
	Permissions []string
}

// HasPermission 判断操作者是否持有权限key
func (a Actor) HasPermission(key string) bool {
	for _, p := range a.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// permitRule 单个许可证操作的准入规则
type permitRule struct {
	from       []domain.PermitStatus // 允许的当前状态
	permission string                // 所需权限key
	role       string                // 非空时限定角色（reapprove 仅限 FIREMAN）
}

// 许可证状态转移表
// PENDING -> APPROVED/REJECTED（审批决定）
// APPROVED -> REVOKED/CLOSED（消防/管理员操作）
// REJECTED/REVOKED -> PENDING（仅 FIREMAN reapprove，重置全部审批行）
// extend 不改状态，只延长 end_date
var permitRules = map[domain.PermitAction]permitRule{
	domain.PermitActionApprove: {
		from:       []domain.PermitStatus{domain.PermitPending},
		permission: domain.PermPermitsApprove,
	},
	domain.PermitActionReject: {
		from:       []domain.PermitStatus{domain.PermitPending},
		permission: domain.PermPermitsApprove,
	},
	domain.PermitActionRevoke: {
		from:       []domain.PermitStatus{domain.PermitApproved},
		permission: domain.PermPermitsRevoke,
	},
	domain.PermitActionClose: {
		from:       []domain.PermitStatus{domain.PermitApproved},
		permission: domain.PermPermitsClose,
	},
	domain.PermitActionExtend: {
		from:       []domain.PermitStatus{domain.PermitPending, domain.PermitApproved},
		permission: domain.PermPermitsExtend,
	},
	domain.PermitActionReapprove: {
		from:       []domain.PermitStatus{domain.PermitRejected, domain.PermitRevoked},
		permission: domain.PermPermitsReapprove,
		role:       domain.RoleFireman,
	},
}

// CheckPermitAction 校验操作合法性
// 先查权限（Unauthorized），再查状态（InvalidTransition）
func CheckPermitAction(action domain.PermitAction, current domain.PermitStatus, actor Actor) error {
	rule, ok := permitRules[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}
	if !actor.HasPermission(rule.permission) {
		return fmt.Errorf("%w: %s requires %s", domain.ErrUnauthorized, action, rule.permission)
	}
	if rule.role != "" && actor.RoleCode != rule.role {
		return fmt.Errorf("%w: %s requires role %s", domain.ErrUnauthorized, action, rule.role)
	}
	for _, s := range rule.from {
		if s == current {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s permit in status %s", domain.ErrInvalidTransition, action, current)
}

// OutstandingApproval 找到操作者角色对应的未决审批行
// approve/reject 只有在存在 decision=PENDING 的本角色审批行时才合法
func OutstandingApproval(approvals []domain.PermitApproval, roleCode string) (*domain.PermitApproval, error) {
	for i := range approvals {
		if approvals[i].ApproverRole == roleCode {
			if approvals[i].Decision == domain.DecisionPending {
				return &approvals[i], nil
			}
			return nil, fmt.Errorf("%w: approval for role %s already decided", domain.ErrInvalidTransition, roleCode)
		}
	}
	return nil, fmt.Errorf("%w: no approval row for role %s", domain.ErrUnauthorized, roleCode)
}

// PermitStatusAfterDecision 根据全部审批行推导许可证状态
// - 任意一行 REJECTED => REJECTED（一票否决）
// - 全部 APPROVED => APPROVED
// - 其余 => PENDING
func PermitStatusAfterDecision(approvals []domain.PermitApproval) domain.PermitStatus {
	allApproved := len(approvals) > 0
	for _, a := range approvals {
		if a.Decision == domain.DecisionRejected {
			return domain.PermitRejected
		}
		if a.Decision != domain.DecisionApproved {
			allApproved = false
		}
	}
	if allApproved {
		return domain.PermitApproved
	}
	return domain.PermitPending
}
