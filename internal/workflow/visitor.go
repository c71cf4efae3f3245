package workflow

import (
	"database/sql"
	"fmt"
	"time"

	"sitepass/internal/domain"
)

// visitorTransition 访客状态转移规则
type visitorTransition struct {
	from       domain.VisitorStatus
	to         domain.VisitorStatus
	permission string
}

// 访客状态转移表
// 审批通过只到 APPROVED，门卫必须再执行物理签到（保留完整审计链，
// 源系统的两条分叉流程里选定这一条）
var visitorTransitions = map[domain.VisitorAction]visitorTransition{
	domain.VisitorActionApprove: {
		from:       domain.VisitorPending,
		to:         domain.VisitorApproved,
		permission: domain.PermVisitorsDecide,
	},
	domain.VisitorActionReject: {
		from:       domain.VisitorPending,
		to:         domain.VisitorRejected,
		permission: domain.PermVisitorsDecide,
	},
	domain.VisitorActionCheckIn: {
		from:       domain.VisitorApproved,
		to:         domain.VisitorCheckedIn,
		permission: domain.PermVisitorsCheckIn,
	},
	domain.VisitorActionCheckOut: {
		from:       domain.VisitorCheckedIn,
		to:         domain.VisitorCheckedOut,
		permission: domain.PermVisitorsCheckOut,
	},
}

// InitialVisitorStatus 提交时的初始状态
// requireApproval=false 的公司走自助通道，直接 CHECKED_IN，不经过 PENDING/APPROVED
func InitialVisitorStatus(requireApproval bool) domain.VisitorStatus {
	if !requireApproval {
		return domain.VisitorCheckedIn
	}
	return domain.VisitorPending
}

// VisitorNext 校验操作并返回目标状态
// current 应传入 EffectiveVisitorStatus 的结果（过期的 PENDING 视为 EXPIRED，不可再决策）
func VisitorNext(action domain.VisitorAction, current domain.VisitorStatus, actor Actor) (domain.VisitorStatus, error) {
	t, ok := visitorTransitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}
	if !actor.HasPermission(t.permission) {
		return "", fmt.Errorf("%w: %s requires %s", domain.ErrUnauthorized, action, t.permission)
	}
	if current != t.from {
		return "", fmt.Errorf("%w: cannot %s visitor request in status %s", domain.ErrInvalidTransition, action, current)
	}
	return t.to, nil
}

// EffectiveVisitorStatus 读取时派生状态
// PENDING 且已过 expires_at 的请求视为 EXPIRED；status 字段本身不回写
// （无后台清扫任务，靠惰性求值避免漏唤醒问题）
func EffectiveVisitorStatus(status domain.VisitorStatus, expiresAt sql.NullTime, now time.Time) domain.VisitorStatus {
	if status == domain.VisitorPending && expiresAt.Valid && now.After(expiresAt.Time) {
		return domain.VisitorExpired
	}
	return status
}
