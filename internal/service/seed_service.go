package service

import (
	"context"
	"strings"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"go.uber.org/zap"
)

// RoleDef 声明式角色定义，种子数据的唯一来源
type RoleDef struct {
	Code        string
	DisplayName string
	Description string
	Permissions []string
}

// allPermissionKeys 全部权限key（ADMIN 持有全部）
var allPermissionKeys = []string{
	domain.PermPermitsCreate, domain.PermPermitsView, domain.PermPermitsApprove,
	domain.PermPermitsRevoke, domain.PermPermitsClose, domain.PermPermitsExtend,
	domain.PermPermitsReapprove,
	domain.PermVisitorsView, domain.PermVisitorsDecide,
	domain.PermVisitorsCheckIn, domain.PermVisitorsCheckOut,
	domain.PermPreApprovalsCreate, domain.PermPreApprovalsCancel,
	domain.PermMetersCreate, domain.PermMetersVerify, domain.PermMetersView, domain.PermMetersExport,
	domain.PermDashboardView,
	domain.PermRolesManage, domain.PermCompaniesManage,
}

// DefaultRoles 系统角色定义
var DefaultRoles = []RoleDef{
	{
		Code:        domain.RoleAdmin,
		DisplayName: "Administrator",
		Description: "Full access to all modules",
		Permissions: allPermissionKeys,
	},
	{
		Code:        domain.RoleFireman,
		DisplayName: "Fire Safety Officer",
		Description: "Approves, revokes and reopens work permits",
		Permissions: []string{
			domain.PermPermitsView, domain.PermPermitsApprove, domain.PermPermitsRevoke,
			domain.PermPermitsClose, domain.PermPermitsExtend, domain.PermPermitsReapprove,
			domain.PermDashboardView,
		},
	},
	{
		Code:        domain.RoleRequestor,
		DisplayName: "Permit Requestor",
		Description: "Creates and tracks work permits",
		Permissions: []string{
			domain.PermPermitsCreate, domain.PermPermitsView, domain.PermPermitsExtend,
		},
	},
	{
		Code:        domain.RoleEngineer,
		DisplayName: "Facility Engineer",
		Description: "Records and reviews meter readings",
		Permissions: []string{
			domain.PermMetersCreate, domain.PermMetersView, domain.PermMetersExport,
			domain.PermDashboardView,
		},
	},
	{
		Code:        domain.RoleGuard,
		DisplayName: "Security Guard",
		Description: "Performs visitor check-in and check-out at the gate",
		Permissions: []string{
			domain.PermVisitorsView, domain.PermVisitorsCheckIn, domain.PermVisitorsCheckOut,
		},
	},
	{
		Code:        domain.RoleReception,
		DisplayName: "Reception",
		Description: "Reviews visitor requests and manages pre-approvals",
		Permissions: []string{
			domain.PermVisitorsView, domain.PermVisitorsDecide,
			domain.PermPreApprovalsCreate, domain.PermPreApprovalsCancel,
		},
	},
}

// defaultAdminAccount 初始管理员，密码首次登录后必须修改
const (
	defaultAdminAccount  = "sysadmin"
	defaultAdminPassword = "ChangeMe123!"
)

// SeedService 声明式种子：权限、角色、初始管理员
// 以唯一键 upsert，重复执行收敛到同一结果
type SeedService struct {
	roles  repository.RolesRepository
	users  repository.UsersRepository
	logger *zap.Logger
}

func NewSeedService(roles repository.RolesRepository, users repository.UsersRepository, logger *zap.Logger) *SeedService {
	return &SeedService{roles: roles, users: users, logger: logger}
}

// SeedReport 种子执行结果
type SeedReport struct {
	PermissionsUpserted int `json:"permissions_upserted"`
	RolesUpserted       int `json:"roles_upserted"`
	UsersUpserted       int `json:"users_upserted"`
	Errors              int `json:"errors"`
}

// permissionFromKey 从点分key拆出 module/action
func permissionFromKey(key string) *domain.Permission {
	module, action, _ := strings.Cut(key, ".")
	return &domain.Permission{
		Key:         key,
		Module:      module,
		Action:      action,
		Description: action + " " + module,
	}
}

// Seed 执行全部种子
// 单项失败记日志并继续，最终报告里带失败计数（部分成功优于整体回滚）
func (s *SeedService) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}

	for _, key := range allPermissionKeys {
		if err := s.roles.UpsertPermission(ctx, permissionFromKey(key)); err != nil {
			s.logger.Warn("Failed to seed permission", zap.String("key", key), zap.Error(err))
			report.Errors++
			continue
		}
		report.PermissionsUpserted++
	}

	for _, def := range DefaultRoles {
		err := s.roles.UpsertRole(ctx, &domain.Role{
			RoleCode:    def.Code,
			DisplayName: def.DisplayName,
			Description: def.Description,
			Permissions: def.Permissions,
			IsSystem:    true,
		})
		if err != nil {
			s.logger.Warn("Failed to seed role", zap.String("role_code", def.Code), zap.Error(err))
			report.Errors++
			continue
		}
		report.RolesUpserted++
	}

	if err := s.seedAdminUser(ctx); err != nil {
		s.logger.Warn("Failed to seed admin user", zap.Error(err))
		report.Errors++
	} else {
		report.UsersUpserted++
	}

	s.logger.Info("Seed completed",
		zap.Int("permissions", report.PermissionsUpserted),
		zap.Int("roles", report.RolesUpserted),
		zap.Int("errors", report.Errors))
	return report, nil
}

// seedAdminUser 初始管理员，已存在时不重置密码
func (s *SeedService) seedAdminUser(ctx context.Context) error {
	if _, err := s.users.GetByAccount(ctx, defaultAdminAccount); err == nil {
		return nil
	}
	hash, err := HashPassword(defaultAdminPassword)
	if err != nil {
		return err
	}
	_, err = s.users.Upsert(ctx, &domain.User{
		Account:      defaultAdminAccount,
		DisplayName:  "System Administrator",
		PasswordHash: hash,
		RoleCode:     domain.RoleAdmin,
		IsActive:     true,
	})
	return err
}
