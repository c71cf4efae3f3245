package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/models"
	"sitepass/internal/repository"
	"sitepass/internal/workflow"

	"go.uber.org/zap"
)

// PermitService 作业许可证业务服务
// 所有状态迁移先过 workflow 校验，再由 Repository 条件更新落库，
// 并发下以数据库行为准（见 repository 包说明）
type PermitService struct {
	permits repository.PermitsRepository
	roles   repository.RolesRepository
	logger  *zap.Logger
}

func NewPermitService(permits repository.PermitsRepository, roles repository.RolesRepository, logger *zap.Logger) *PermitService {
	return &PermitService{permits: permits, roles: roles, logger: logger}
}

// CreatePermitRequest 创建许可证请求
type CreatePermitRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	WorkType      string   `json:"work_type"`
	Location      string   `json:"location"`
	Priority      string   `json:"priority"`
	StartDate     string   `json:"start_date"` // YYYY-MM-DD
	EndDate       string   `json:"end_date"`
	ApproverRoles []string `json:"approver_roles"`
}

// PermitItem 许可证列表项
type PermitItem struct {
	PermitID    string `json:"permit_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	WorkType    string `json:"work_type"`
	Location    string `json:"location"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	CreatedBy   string `json:"created_by"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ApprovalItem 审批行
type ApprovalItem struct {
	ApprovalID   string `json:"approval_id"`
	ApproverRole string `json:"approver_role"`
	Decision     string `json:"decision"`
	Comment      string `json:"comment,omitempty"`
	ApprovedBy   string `json:"approved_by,omitempty"`
	ApprovedAt   string `json:"approved_at,omitempty"`
}

// PermitDetail 许可证详情（含审批行）
type PermitDetail struct {
	PermitItem
	Approvals []ApprovalItem `json:"approvals"`
}

// ListPermitsRequest 许可证列表查询
type ListPermitsRequest struct {
	Status    string `json:"status"`
	WorkType  string `json:"work_type"`
	CreatedBy string `json:"created_by"`
	Search    string `json:"search"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// ListPermitsResponse 许可证列表响应
type ListPermitsResponse struct {
	Items      []PermitItem      `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// DecidePermitRequest 审批决策请求
type DecidePermitRequest struct {
	PermitID string `json:"permit_id"`
	Approve  bool   `json:"approve"`
	Comment  string `json:"comment"`
}

// ExtendPermitRequest 延期请求
type ExtendPermitRequest struct {
	PermitID string `json:"permit_id"`
	EndDate  string `json:"end_date"` // YYYY-MM-DD
}

const dateLayout = "2006-01-02"

func toPermitItem(p *domain.Permit) PermitItem {
	return PermitItem{
		PermitID:    p.PermitID,
		Title:       p.Title,
		Description: p.Description,
		WorkType:    p.WorkType,
		Location:    p.Location,
		Priority:    p.Priority,
		Status:      string(p.Status),
		CreatedBy:   p.CreatedBy,
		StartDate:   p.StartDate.Format(dateLayout),
		EndDate:     p.EndDate.Format(dateLayout),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

func toApprovalItem(a domain.PermitApproval) ApprovalItem {
	item := ApprovalItem{
		ApprovalID:   a.ApprovalID,
		ApproverRole: a.ApproverRole,
		Decision:     string(a.Decision),
	}
	if a.Comment.Valid {
		item.Comment = a.Comment.String
	}
	if a.ApprovedBy.Valid {
		item.ApprovedBy = a.ApprovedBy.String
	}
	if a.ApprovedAt.Valid {
		item.ApprovedAt = a.ApprovedAt.Time.Format(time.RFC3339)
	}
	return item
}

// Create 创建许可证并生成每个审批角色的 PENDING 审批行
// 不指定审批角色时默认只需消防审批
func (s *PermitService) Create(ctx context.Context, req CreatePermitRequest, user *domain.User) (*PermitDetail, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermPermitsCreate) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermPermitsCreate)
	}

	if req.Title == "" || req.WorkType == "" {
		return nil, fmt.Errorf("%w: title and work_type are required", domain.ErrValidation)
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_date", domain.ErrValidation)
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_date", domain.ErrValidation)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
	}
	priority := req.Priority
	if priority == "" {
		priority = "MEDIUM"
	}
	approverRoles := req.ApproverRoles
	if len(approverRoles) == 0 {
		approverRoles = []string{domain.RoleFireman}
	}

	permitID, err := s.permits.CreatePermitWithApprovals(ctx, &domain.Permit{
		Title:       req.Title,
		Description: req.Description,
		WorkType:    req.WorkType,
		Location:    req.Location,
		Priority:    priority,
		CreatedBy:   user.UserID,
		StartDate:   startDate,
		EndDate:     endDate,
	}, approverRoles)
	if err != nil {
		return nil, fmt.Errorf("failed to create permit: %w", err)
	}

	s.logger.Info("Permit created",
		zap.String("permit_id", permitID),
		zap.String("work_type", req.WorkType),
		zap.String("created_by", user.UserID))
	return s.Get(ctx, permitID)
}

// Get 许可证详情
func (s *PermitService) Get(ctx context.Context, permitID string) (*PermitDetail, error) {
	p, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.permits.ListApprovals(ctx, permitID)
	if err != nil {
		return nil, err
	}
	detail := &PermitDetail{PermitItem: toPermitItem(p), Approvals: make([]ApprovalItem, 0, len(approvals))}
	for _, a := range approvals {
		detail.Approvals = append(detail.Approvals, toApprovalItem(a))
	}
	return detail, nil
}

// List 分页查询许可证
func (s *PermitService) List(ctx context.Context, req ListPermitsRequest) (*ListPermitsResponse, error) {
	filter := repository.PermitsFilter{
		Status:    req.Status,
		WorkType:  req.WorkType,
		CreatedBy: req.CreatedBy,
		Search:    req.Search,
	}
	items, total, err := s.permits.ListPermits(ctx, filter, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	resp := &ListPermitsResponse{
		Items:      make([]PermitItem, 0, len(items)),
		Pagination: models.NewPagination(req.Page, req.PageSize, total),
	}
	for _, p := range items {
		resp.Items = append(resp.Items, toPermitItem(p))
	}
	return resp, nil
}

// Decide 审批决策：写本角色的审批行，再按全部审批行推导许可证状态
// 任一拒绝 => REJECTED；全部通过 => APPROVED；否则保持 PENDING
func (s *PermitService) Decide(ctx context.Context, req DecidePermitRequest, user *domain.User) (*PermitDetail, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}

	permit, err := s.permits.GetPermit(ctx, req.PermitID)
	if err != nil {
		return nil, err
	}

	action := domain.PermitActionApprove
	decision := domain.DecisionApproved
	if !req.Approve {
		action = domain.PermitActionReject
		decision = domain.DecisionRejected
	}
	if err := workflow.CheckPermitAction(action, permit.Status, actor); err != nil {
		return nil, err
	}

	approvals, err := s.permits.ListApprovals(ctx, req.PermitID)
	if err != nil {
		return nil, err
	}
	row, err := workflow.OutstandingApproval(approvals, actor.RoleCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.permits.DecideApproval(ctx, row.ApprovalID, decision, req.Comment, user.UserID, now); err != nil {
		return nil, err
	}

	// 重读全部审批行推导许可证状态
	approvals, err = s.permits.ListApprovals(ctx, req.PermitID)
	if err != nil {
		return nil, err
	}
	newStatus := workflow.PermitStatusAfterDecision(approvals)
	if newStatus != domain.PermitPending {
		err = s.permits.UpdatePermitStatus(ctx, req.PermitID, []domain.PermitStatus{domain.PermitPending}, newStatus)
		if errors.Is(err, domain.ErrInvalidTransition) {
			// 并发决策已完成同样的迁移
			current, gerr := s.permits.GetPermit(ctx, req.PermitID)
			if gerr != nil || current.Status != newStatus {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
	}

	s.logger.Info("Permit decision recorded",
		zap.String("permit_id", req.PermitID),
		zap.String("role", actor.RoleCode),
		zap.String("decision", string(decision)),
		zap.String("new_status", string(newStatus)))
	return s.Get(ctx, req.PermitID)
}

// Revoke 撤销已批准的许可证
func (s *PermitService) Revoke(ctx context.Context, permitID string, user *domain.User) (*PermitDetail, error) {
	return s.transition(ctx, permitID, user, domain.PermitActionRevoke,
		[]domain.PermitStatus{domain.PermitApproved}, domain.PermitRevoked)
}

// Close 关闭已批准的许可证（作业完成）
func (s *PermitService) Close(ctx context.Context, permitID string, user *domain.User) (*PermitDetail, error) {
	return s.transition(ctx, permitID, user, domain.PermitActionClose,
		[]domain.PermitStatus{domain.PermitApproved}, domain.PermitClosed)
}

// Extend 延长有效期，不改变状态
func (s *PermitService) Extend(ctx context.Context, req ExtendPermitRequest, user *domain.User) (*PermitDetail, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	permit, err := s.permits.GetPermit(ctx, req.PermitID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckPermitAction(domain.PermitActionExtend, permit.Status, actor); err != nil {
		return nil, err
	}
	newEndDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_date", domain.ErrValidation)
	}
	if !newEndDate.After(permit.EndDate) {
		return nil, fmt.Errorf("%w: new end_date must be after current end_date", domain.ErrValidation)
	}
	err = s.permits.ExtendPermit(ctx, req.PermitID,
		[]domain.PermitStatus{domain.PermitPending, domain.PermitApproved}, newEndDate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Permit extended",
		zap.String("permit_id", req.PermitID),
		zap.String("new_end_date", req.EndDate))
	return s.Get(ctx, req.PermitID)
}

// Reapprove 重新发起审批：REJECTED/REVOKED 回到 PENDING，审批行全部重置
func (s *PermitService) Reapprove(ctx context.Context, permitID string, user *domain.User) (*PermitDetail, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	permit, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckPermitAction(domain.PermitActionReapprove, permit.Status, actor); err != nil {
		return nil, err
	}
	err = s.permits.UpdatePermitStatus(ctx, permitID,
		[]domain.PermitStatus{domain.PermitRejected, domain.PermitRevoked}, domain.PermitPending)
	if err != nil {
		return nil, err
	}
	if err := s.permits.ResetApprovals(ctx, permitID); err != nil {
		return nil, err
	}
	s.logger.Info("Permit reopened for approval", zap.String("permit_id", permitID))
	return s.Get(ctx, permitID)
}

func (s *PermitService) transition(ctx context.Context, permitID string, user *domain.User,
	action domain.PermitAction, from []domain.PermitStatus, to domain.PermitStatus) (*PermitDetail, error) {

	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	permit, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckPermitAction(action, permit.Status, actor); err != nil {
		return nil, err
	}
	if err := s.permits.UpdatePermitStatus(ctx, permitID, from, to); err != nil {
		return nil, err
	}
	s.logger.Info("Permit status changed",
		zap.String("permit_id", permitID),
		zap.String("action", string(action)),
		zap.String("to", string(to)))
	return s.Get(ctx, permitID)
}
