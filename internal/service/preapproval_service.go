package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/models"
	"sitepass/internal/repository"
	"sitepass/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PreApprovalService 访客预批服务
type PreApprovalService struct {
	preApprovals repository.PreApprovalsRepository
	roles        repository.RolesRepository
	directory    *CompanyDirectory
	logger       *zap.Logger

	now func() time.Time
}

func NewPreApprovalService(
	preApprovals repository.PreApprovalsRepository,
	roles repository.RolesRepository,
	directory *CompanyDirectory,
	logger *zap.Logger,
) *PreApprovalService {
	return &PreApprovalService{
		preApprovals: preApprovals,
		roles:        roles,
		directory:    directory,
		logger:       logger,
		now:          time.Now,
	}
}

// CreatePreApprovalRequest 创建预批请求
type CreatePreApprovalRequest struct {
	CompanyCode string `json:"company_code"`
	VisitorName string `json:"visitor_name"`
	ValidFrom   string `json:"valid_from"` // YYYY-MM-DD
	ValidUntil  string `json:"valid_until"`
}

// PreApprovalItem 预批项
type PreApprovalItem struct {
	PreApprovalID string `json:"pre_approval_id"`
	ApprovalCode  string `json:"approval_code"`
	CompanyID     string `json:"company_id"`
	VisitorName   string `json:"visitor_name"`
	Status        string `json:"status"`
	ValidFrom     string `json:"valid_from"`
	ValidUntil    string `json:"valid_until"`
	UsedAt        string `json:"used_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ListPreApprovalsResponse 预批列表响应
type ListPreApprovalsResponse struct {
	Items      []PreApprovalItem `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

func (s *PreApprovalService) toItem(pa *domain.PreApproval) PreApprovalItem {
	item := PreApprovalItem{
		PreApprovalID: pa.PreApprovalID,
		ApprovalCode:  pa.ApprovalCode,
		CompanyID:     pa.CompanyID,
		VisitorName:   pa.VisitorName,
		Status:        string(workflow.EffectivePreApprovalStatus(pa, s.now())),
		ValidFrom:     pa.ValidFrom.Format(dateLayout),
		ValidUntil:    pa.ValidUntil.Format(dateLayout),
		CreatedAt:     pa.CreatedAt.Format(time.RFC3339),
	}
	if pa.UsedAt.Valid {
		item.UsedAt = pa.UsedAt.Time.Format(time.RFC3339)
	}
	return item
}

// generateApprovalCode 生成预批码，如 PA-20260901-9F3C21
func generateApprovalCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PA-%s-%s", now.Format("20060102"), suffix)
}

// Create 创建预批码
// valid_until 按当天末尾计（整天有效）
func (s *PreApprovalService) Create(ctx context.Context, req CreatePreApprovalRequest, user *domain.User) (*PreApprovalItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermPreApprovalsCreate) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermPreApprovalsCreate)
	}
	if req.VisitorName == "" {
		return nil, fmt.Errorf("%w: visitor_name is required", domain.ErrValidation)
	}

	company, err := s.directory.GetByCode(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	validFrom, err := time.Parse(dateLayout, req.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_from", domain.ErrValidation)
	}
	validUntil, err := time.Parse(dateLayout, req.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_until", domain.ErrValidation)
	}
	validUntil = validUntil.Add(24*time.Hour - time.Second)
	if validUntil.Before(validFrom) {
		return nil, fmt.Errorf("%w: valid_until must not be before valid_from", domain.ErrValidation)
	}

	now := s.now()
	pa := &domain.PreApproval{
		ApprovalCode: generateApprovalCode(now),
		CompanyID:    company.CompanyID,
		VisitorName:  req.VisitorName,
		Status:       domain.PreApprovalActive,
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		CreatedBy:    user.UserID,
	}
	// Repository 内部生成 ID 和 created_at，回读完整记录
	if _, err := s.preApprovals.Create(ctx, pa); err != nil {
		return nil, fmt.Errorf("failed to create pre-approval: %w", err)
	}

	s.logger.Info("Pre-approval created",
		zap.String("approval_code", pa.ApprovalCode),
		zap.String("company_code", req.CompanyCode))
	return s.getByCode(ctx, pa.ApprovalCode)
}

// List 预批列表（按公司过滤）
func (s *PreApprovalService) List(ctx context.Context, companyID string, page, pageSize int, user *domain.User) (*ListPreApprovalsResponse, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermVisitorsView) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermVisitorsView)
	}
	items, total, err := s.preApprovals.List(ctx, companyID, page, pageSize)
	if err != nil {
		return nil, err
	}
	resp := &ListPreApprovalsResponse{
		Items:      make([]PreApprovalItem, 0, len(items)),
		Pagination: models.NewPagination(page, pageSize, total),
	}
	for _, pa := range items {
		resp.Items = append(resp.Items, s.toItem(pa))
	}
	return resp, nil
}

// Cancel 取消未使用的预批码
func (s *PreApprovalService) Cancel(ctx context.Context, approvalCode string, user *domain.User) (*PreApprovalItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermPreApprovalsCancel) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermPreApprovalsCancel)
	}
	pa, err := s.preApprovals.GetByCode(ctx, approvalCode)
	if err != nil {
		return nil, err
	}
	if err := s.preApprovals.Cancel(ctx, pa.PreApprovalID); err != nil {
		return nil, err
	}
	s.logger.Info("Pre-approval cancelled", zap.String("approval_code", approvalCode))
	return s.getByCode(ctx, approvalCode)
}

// Validate 查询预批码当前有效性（签到页预检用）
func (s *PreApprovalService) Validate(ctx context.Context, approvalCode string) (*PreApprovalItem, error) {
	return s.getByCode(ctx, approvalCode)
}

func (s *PreApprovalService) getByCode(ctx context.Context, approvalCode string) (*PreApprovalItem, error) {
	pa, err := s.preApprovals.GetByCode(ctx, approvalCode)
	if err != nil {
		return nil, err
	}
	item := s.toItem(pa)
	return &item, nil
}
