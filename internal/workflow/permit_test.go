package workflow

import (
	"errors"
	"testing"

	"sitepass/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firemanActor() Actor {
	return Actor{
		UserID:   "u-fireman",
		RoleCode: domain.RoleFireman,
		Permissions: []string{
			domain.PermPermitsApprove,
			domain.PermPermitsRevoke,
			domain.PermPermitsClose,
			domain.PermPermitsExtend,
			domain.PermPermitsReapprove,
		},
	}
}

func requestorActor() Actor {
	return Actor{
		UserID:      "u-requestor",
		RoleCode:    domain.RoleRequestor,
		Permissions: []string{domain.PermPermitsCreate, domain.PermPermitsView},
	}
}

func TestCheckPermitAction_ApproveOnlyFromPending(t *testing.T) {
	actor := firemanActor()

	err := CheckPermitAction(domain.PermitActionApprove, domain.PermitPending, actor)
	require.NoError(t, err)

	for _, s := range []domain.PermitStatus{
		domain.PermitApproved, domain.PermitRejected, domain.PermitRevoked,
		domain.PermitClosed, domain.PermitExpired,
	} {
		err := CheckPermitAction(domain.PermitActionApprove, s, actor)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "status %s", s)
	}
}

func TestCheckPermitAction_Unauthorized(t *testing.T) {
	// 权限不足时优先返回 Unauthorized，而不是 InvalidTransition
	err := CheckPermitAction(domain.PermitActionApprove, domain.PermitApproved, requestorActor())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCheckPermitAction_RevokeCloseOnlyFromApproved(t *testing.T) {
	actor := firemanActor()

	require.NoError(t, CheckPermitAction(domain.PermitActionRevoke, domain.PermitApproved, actor))
	require.NoError(t, CheckPermitAction(domain.PermitActionClose, domain.PermitApproved, actor))

	assert.ErrorIs(t, CheckPermitAction(domain.PermitActionRevoke, domain.PermitPending, actor), domain.ErrInvalidTransition)
	assert.ErrorIs(t, CheckPermitAction(domain.PermitActionClose, domain.PermitRejected, actor), domain.ErrInvalidTransition)
}

func TestCheckPermitAction_ExtendFromPendingOrApproved(t *testing.T) {
	actor := firemanActor()

	require.NoError(t, CheckPermitAction(domain.PermitActionExtend, domain.PermitPending, actor))
	require.NoError(t, CheckPermitAction(domain.PermitActionExtend, domain.PermitApproved, actor))
	assert.ErrorIs(t, CheckPermitAction(domain.PermitActionExtend, domain.PermitClosed, actor), domain.ErrInvalidTransition)
}

func TestCheckPermitAction_ReapproveFiremanOnly(t *testing.T) {
	fireman := firemanActor()

	require.NoError(t, CheckPermitAction(domain.PermitActionReapprove, domain.PermitRejected, fireman))
	require.NoError(t, CheckPermitAction(domain.PermitActionReapprove, domain.PermitRevoked, fireman))
	assert.ErrorIs(t, CheckPermitAction(domain.PermitActionReapprove, domain.PermitPending, fireman), domain.ErrInvalidTransition)

	// 持有权限但角色不是 FIREMAN 的情况
	admin := Actor{
		UserID:      "u-admin",
		RoleCode:    domain.RoleAdmin,
		Permissions: []string{domain.PermPermitsReapprove},
	}
	assert.ErrorIs(t, CheckPermitAction(domain.PermitActionReapprove, domain.PermitRejected, admin), domain.ErrUnauthorized)
}

func TestCheckPermitAction_UnknownAction(t *testing.T) {
	err := CheckPermitAction(domain.PermitAction("delete"), domain.PermitPending, firemanActor())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOutstandingApproval(t *testing.T) {
	approvals := []domain.PermitApproval{
		{ApprovalID: "a1", ApproverRole: domain.RoleFireman, Decision: domain.DecisionPending},
		{ApprovalID: "a2", ApproverRole: domain.RoleAdmin, Decision: domain.DecisionApproved},
	}

	got, err := OutstandingApproval(approvals, domain.RoleFireman)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ApprovalID)

	// 已决策的审批行不能重复决策
	_, err = OutstandingApproval(approvals, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// 没有本角色的审批行
	_, err = OutstandingApproval(approvals, domain.RoleGuard)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPermitStatusAfterDecision(t *testing.T) {
	cases := []struct {
		name      string
		decisions []domain.ApprovalDecision
		want      domain.PermitStatus
	}{
		{"all approved", []domain.ApprovalDecision{domain.DecisionApproved, domain.DecisionApproved}, domain.PermitApproved},
		{"one pending", []domain.ApprovalDecision{domain.DecisionApproved, domain.DecisionPending}, domain.PermitPending},
		// 一票否决：其它行即使已通过也整单拒绝
		{"one rejected", []domain.ApprovalDecision{domain.DecisionApproved, domain.DecisionRejected}, domain.PermitRejected},
		{"single approved", []domain.ApprovalDecision{domain.DecisionApproved}, domain.PermitApproved},
		{"no approvals", nil, domain.PermitPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			approvals := make([]domain.PermitApproval, 0, len(tc.decisions))
			for i, d := range tc.decisions {
				approvals = append(approvals, domain.PermitApproval{
					ApprovalID: string(rune('a' + i)),
					Decision:   d,
				})
			}
			assert.Equal(t, tc.want, PermitStatusAfterDecision(approvals))
		})
	}
}

func TestCheckPermitAction_ErrorsAreSentinels(t *testing.T) {
	err := CheckPermitAction(domain.PermitActionApprove, domain.PermitClosed, firemanActor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}
