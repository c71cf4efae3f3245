package workflow

import (
	"fmt"
	"time"

	"sitepass/internal/domain"
)

// EffectivePreApprovalStatus 读取时派生状态
// ACTIVE 且 now > valid_until 时读取为 EXPIRED，不落库
func EffectivePreApprovalStatus(pa *domain.PreApproval, now time.Time) domain.PreApprovalStatus {
	if pa.Status == domain.PreApprovalActive && now.After(pa.ValidUntil) {
		return domain.PreApprovalExpired
	}
	return pa.Status
}

// CheckPreApprovalConsumable 预批码能否在签到时消费
// 仅在有效期内的 ACTIVE 状态可消费
func CheckPreApprovalConsumable(pa *domain.PreApproval, now time.Time) error {
	switch EffectivePreApprovalStatus(pa, now) {
	case domain.PreApprovalActive:
	case domain.PreApprovalExpired:
		return fmt.Errorf("%w: pre-approval %s expired", domain.ErrInvalidTransition, pa.ApprovalCode)
	default:
		return fmt.Errorf("%w: pre-approval %s is %s", domain.ErrInvalidTransition, pa.ApprovalCode, pa.Status)
	}
	if now.Before(pa.ValidFrom) {
		return fmt.Errorf("%w: pre-approval %s not yet valid", domain.ErrInvalidTransition, pa.ApprovalCode)
	}
	return nil
}
