package service

import (
	"context"
	"database/sql"
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

// VisitorService 访客签到业务服务
// 提交入口是公共接口（无认证），决策/签到/签出走认证接口
type VisitorService struct {
	visitors     repository.VisitorsRepository
	preApprovals repository.PreApprovalsRepository
	roles        repository.RolesRepository
	directory    *CompanyDirectory
	checkInTTL   time.Duration // PENDING 请求的审批窗口
	pollInterval int           // 客户端建议轮询间隔（秒）
	logger       *zap.Logger

	// now 可注入，测试过期行为用
	now func() time.Time
}

func NewVisitorService(
	visitors repository.VisitorsRepository,
	preApprovals repository.PreApprovalsRepository,
	roles repository.RolesRepository,
	directory *CompanyDirectory,
	checkInTTL time.Duration,
	pollInterval int,
	logger *zap.Logger,
) *VisitorService {
	return &VisitorService{
		visitors:     visitors,
		preApprovals: preApprovals,
		roles:        roles,
		directory:    directory,
		checkInTTL:   checkInTTL,
		pollInterval: pollInterval,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitCheckInRequest 公共签到表单
type SubmitCheckInRequest struct {
	CompanyCode     string `json:"company_code"`
	VisitorName     string `json:"visitor_name"`
	Phone           string `json:"phone"`
	Purpose         string `json:"purpose"`
	HostName        string `json:"host_name"`
	PreApprovalCode string `json:"pre_approval_code"`
}

// SubmitCheckInResponse 提交结果，客户端凭 request_number 轮询
type SubmitCheckInResponse struct {
	RequestNumber   string `json:"request_number"`
	Status          string `json:"status"`
	PollIntervalSec int    `json:"poll_interval_sec"`
}

// VisitorStatusResponse 轮询响应
type VisitorStatusResponse struct {
	RequestNumber  string `json:"request_number"`
	Status         string `json:"status"`
	VisitorName    string `json:"visitor_name"`
	DecisionReason string `json:"decision_reason,omitempty"`
	CheckInTime    string `json:"check_in_time,omitempty"`
	CheckOutTime   string `json:"check_out_time,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

// VisitorItem 访客请求列表项（管理端）
type VisitorItem struct {
	RequestID        string `json:"request_id"`
	RequestNumber    string `json:"request_number"`
	CompanyID        string `json:"company_id"`
	VisitorName      string `json:"visitor_name"`
	Phone            string `json:"phone"`
	Purpose          string `json:"purpose,omitempty"`
	HostName         string `json:"host_name,omitempty"`
	Status           string `json:"status"`
	RequiresApproval bool   `json:"requires_approval"`
	PreApprovalCode  string `json:"pre_approval_code,omitempty"`
	DecidedBy        string `json:"decided_by,omitempty"`
	DecisionReason   string `json:"decision_reason,omitempty"`
	CheckInTime      string `json:"check_in_time,omitempty"`
	CheckOutTime     string `json:"check_out_time,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// ListVisitorsRequest 访客请求列表查询
type ListVisitorsRequest struct {
	CompanyID string `json:"company_id"`
	Status    string `json:"status"`
	Search    string `json:"search"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// ListVisitorsResponse 访客请求列表响应
type ListVisitorsResponse struct {
	Items      []VisitorItem     `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// DecideVisitorRequest 访客审批决策
type DecideVisitorRequest struct {
	RequestID string `json:"request_id"`
	Approve   bool   `json:"approve"`
	Reason    string `json:"reason"`
}

func (s *VisitorService) toItem(v *domain.VisitorRequest) VisitorItem {
	item := VisitorItem{
		RequestID:        v.RequestID,
		RequestNumber:    v.RequestNumber,
		CompanyID:        v.CompanyID,
		VisitorName:      v.VisitorName,
		Phone:            v.Phone,
		Status:           string(workflow.EffectiveVisitorStatus(v.Status, v.ExpiresAt, s.now())),
		RequiresApproval: v.RequiresApproval,
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
	}
	if v.Purpose.Valid {
		item.Purpose = v.Purpose.String
	}
	if v.HostName.Valid {
		item.HostName = v.HostName.String
	}
	if v.PreApprovalCode.Valid {
		item.PreApprovalCode = v.PreApprovalCode.String
	}
	if v.DecidedBy.Valid {
		item.DecidedBy = v.DecidedBy.String
	}
	if v.DecisionReason.Valid {
		item.DecisionReason = v.DecisionReason.String
	}
	if v.CheckInTime.Valid {
		item.CheckInTime = v.CheckInTime.Time.Format(time.RFC3339)
	}
	if v.CheckOutTime.Valid {
		item.CheckOutTime = v.CheckOutTime.Time.Format(time.RFC3339)
	}
	if v.ExpiresAt.Valid {
		item.ExpiresAt = v.ExpiresAt.Time.Format(time.RFC3339)
	}
	return item
}

// generateRequestNumber 生成对外可读编号，如 VR-20260901-1A2B3C
func generateRequestNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("VR-%s-%s", now.Format("20060102"), suffix)
}

// Submit 公共签到提交
// requireApproval 从公司配置快照；携带有效预批码时跳过审批直接 CHECKED_IN
func (s *VisitorService) Submit(ctx context.Context, req SubmitCheckInRequest) (*SubmitCheckInResponse, error) {
	if req.VisitorName == "" || req.Phone == "" {
		return nil, fmt.Errorf("%w: visitor_name and phone are required", domain.ErrValidation)
	}

	company, err := s.directory.GetByCode(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, fmt.Errorf("%w: company %s is not accepting visitors", domain.ErrNotFound, req.CompanyCode)
	}

	now := s.now()
	requireApproval := company.RequireApproval
	var preApprovalCode sql.NullString

	if req.PreApprovalCode != "" {
		pa, err := s.preApprovals.GetByCode(ctx, req.PreApprovalCode)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pre-approval code", domain.ErrValidation)
		}
		if pa.CompanyID != company.CompanyID {
			return nil, fmt.Errorf("%w: pre-approval code does not belong to company %s", domain.ErrValidation, req.CompanyCode)
		}
		if err := workflow.CheckPreApprovalConsumable(pa, now); err != nil {
			return nil, err
		}
		// 条件更新消费预批码，并发重复使用会在这里失败
		if err := s.preApprovals.MarkUsed(ctx, pa.PreApprovalID, now); err != nil {
			return nil, err
		}
		requireApproval = false
		preApprovalCode = sql.NullString{String: pa.ApprovalCode, Valid: true}
	}

	status := workflow.InitialVisitorStatus(requireApproval)
	row := &domain.VisitorRequest{
		RequestNumber:    generateRequestNumber(now),
		CompanyID:        company.CompanyID,
		VisitorName:      req.VisitorName,
		Phone:            req.Phone,
		Status:           status,
		RequiresApproval: requireApproval,
		PreApprovalCode:  preApprovalCode,
	}
	if req.Purpose != "" {
		row.Purpose = sql.NullString{String: req.Purpose, Valid: true}
	}
	if req.HostName != "" {
		row.HostName = sql.NullString{String: req.HostName, Valid: true}
	}
	if status == domain.VisitorPending {
		row.ExpiresAt = sql.NullTime{Time: now.Add(s.checkInTTL), Valid: true}
	}
	if status == domain.VisitorCheckedIn {
		row.CheckInTime = sql.NullTime{Time: now, Valid: true}
	}

	if _, err := s.visitors.CreateRequest(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to create visitor request: %w", err)
	}

	s.logger.Info("Visitor check-in submitted",
		zap.String("request_number", row.RequestNumber),
		zap.String("company_code", req.CompanyCode),
		zap.String("status", string(status)))
	return &SubmitCheckInResponse{
		RequestNumber:   row.RequestNumber,
		Status:          string(status),
		PollIntervalSec: s.pollInterval,
	}, nil
}

// Status 公共轮询接口，按 request_number 查询当前状态
func (s *VisitorService) Status(ctx context.Context, requestNumber string) (*VisitorStatusResponse, error) {
	if requestNumber == "" {
		return nil, fmt.Errorf("%w: request_number is required", domain.ErrValidation)
	}
	v, err := s.visitors.GetByRequestNumber(ctx, requestNumber)
	if err != nil {
		return nil, err
	}
	item := s.toItem(v)
	return &VisitorStatusResponse{
		RequestNumber:  item.RequestNumber,
		Status:         item.Status,
		VisitorName:    item.VisitorName,
		DecisionReason: item.DecisionReason,
		CheckInTime:    item.CheckInTime,
		CheckOutTime:   item.CheckOutTime,
		ExpiresAt:      item.ExpiresAt,
	}, nil
}

// List 访客请求列表（管理端）
func (s *VisitorService) List(ctx context.Context, req ListVisitorsRequest, user *domain.User) (*ListVisitorsResponse, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermVisitorsView) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermVisitorsView)
	}
	items, total, err := s.visitors.ListRequests(ctx, repository.VisitorsFilter{
		CompanyID: req.CompanyID,
		Status:    req.Status,
		Search:    req.Search,
	}, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	resp := &ListVisitorsResponse{
		Items:      make([]VisitorItem, 0, len(items)),
		Pagination: models.NewPagination(req.Page, req.PageSize, total),
	}
	for _, v := range items {
		resp.Items = append(resp.Items, s.toItem(v))
	}
	return resp, nil
}

// Decide 前台审批访客请求
// 过期的 PENDING 按派生状态 EXPIRED 处理，拒绝决策
func (s *VisitorService) Decide(ctx context.Context, req DecideVisitorRequest, user *domain.User) (*VisitorItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	v, err := s.visitors.GetRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	action := domain.VisitorActionApprove
	if !req.Approve {
		action = domain.VisitorActionReject
	}
	effective := workflow.EffectiveVisitorStatus(v.Status, v.ExpiresAt, s.now())
	to, err := workflow.VisitorNext(action, effective, actor)
	if err != nil {
		return nil, err
	}

	set := repository.VisitorStatusUpdate{DecidedBy: &user.UserID}
	if req.Reason != "" {
		set.DecisionReason = &req.Reason
	}
	err = s.visitors.UpdateStatus(ctx, req.RequestID, []domain.VisitorStatus{domain.VisitorPending}, to, set)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Visitor request decided",
		zap.String("request_number", v.RequestNumber),
		zap.String("action", string(action)),
		zap.String("decided_by", user.UserID))
	return s.get(ctx, req.RequestID)
}

// CheckIn 门卫执行物理签到
func (s *VisitorService) CheckIn(ctx context.Context, requestID string, user *domain.User) (*VisitorItem, error) {
	return s.gateAction(ctx, requestID, user, domain.VisitorActionCheckIn)
}

// CheckOut 门卫执行签出
func (s *VisitorService) CheckOut(ctx context.Context, requestID string, user *domain.User) (*VisitorItem, error) {
	return s.gateAction(ctx, requestID, user, domain.VisitorActionCheckOut)
}

func (s *VisitorService) gateAction(ctx context.Context, requestID string, user *domain.User, action domain.VisitorAction) (*VisitorItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	v, err := s.visitors.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	effective := workflow.EffectiveVisitorStatus(v.Status, v.ExpiresAt, s.now())
	to, err := workflow.VisitorNext(action, effective, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set := repository.VisitorStatusUpdate{}
	var from []domain.VisitorStatus
	switch action {
	case domain.VisitorActionCheckIn:
		from = []domain.VisitorStatus{domain.VisitorApproved}
		set.CheckInTime = &now
	case domain.VisitorActionCheckOut:
		from = []domain.VisitorStatus{domain.VisitorCheckedIn}
		set.CheckOutTime = &now
	default:
		return nil, fmt.Errorf("%w: unsupported gate action %q", domain.ErrValidation, action)
	}

	if err := s.visitors.UpdateStatus(ctx, requestID, from, to, set); err != nil {
		return nil, err
	}
	s.logger.Info("Visitor gate action",
		zap.String("request_number", v.RequestNumber),
		zap.String("action", string(action)))
	return s.get(ctx, requestID)
}

func (s *VisitorService) get(ctx context.Context, requestID string) (*VisitorItem, error) {
	v, err := s.visitors.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	item := s.toItem(v)
	return &item, nil
}
