// +build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sitepass/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 创建测试公司
func createTestCompanyForVisitors(t *testing.T, db *sql.DB) string {
	repo := NewPostgresCompaniesRepository(db)
	companyID, err := repo.Upsert(context.Background(), &domain.Company{
		CompanyCode:     "TEST-VMS",
		CompanyName:     "Test VMS Company",
		RequireApproval: true,
		IsActive:        true,
	})
	require.NoError(t, err)
	return companyID
}

func cleanupTestVisitors(db *sql.DB, companyID string) {
	db.Exec(`DELETE FROM visitor_requests WHERE company_id = $1`, companyID)
	db.Exec(`DELETE FROM companies WHERE company_id = $1`, companyID)
}

func TestPostgresVisitors_LifecycleWithConditionalUpdates(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresVisitorsRepository(db)
	ctx := context.Background()
	companyID := createTestCompanyForVisitors(t, db)
	defer cleanupTestVisitors(db, companyID)

	expiresAt := time.Now().Add(24 * time.Hour)
	requestID, err := repo.CreateRequest(ctx, &domain.VisitorRequest{
		RequestNumber:    "VR-TEST-0001",
		CompanyID:        companyID,
		VisitorName:      "Test Visitor",
		Phone:            "13800000000",
		Status:           domain.VisitorPending,
		RequiresApproval: true,
		ExpiresAt:        sql.NullTime{Time: expiresAt, Valid: true},
	})
	require.NoError(t, err)

	// request_number 唯一键冲突
	_, err = repo.CreateRequest(ctx, &domain.VisitorRequest{
		RequestNumber:    "VR-TEST-0001",
		CompanyID:        companyID,
		VisitorName:      "Dup Visitor",
		Phone:            "13800000001",
		Status:           domain.VisitorPending,
		RequiresApproval: true,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// 轮询接口按编号读取
	v, err := repo.GetByRequestNumber(ctx, "VR-TEST-0001")
	require.NoError(t, err)
	assert.Equal(t, requestID, v.RequestID)

	// PENDING -> APPROVED
	decidedBy := "reception-1"
	err = repo.UpdateStatus(ctx, requestID,
		[]domain.VisitorStatus{domain.VisitorPending}, domain.VisitorApproved,
		VisitorStatusUpdate{DecidedBy: &decidedBy})
	require.NoError(t, err)

	// 未 CHECKED_IN 不能 checkout（条件更新 0 行），行保持不变
	now := time.Now()
	err = repo.UpdateStatus(ctx, requestID,
		[]domain.VisitorStatus{domain.VisitorCheckedIn}, domain.VisitorCheckedOut,
		VisitorStatusUpdate{CheckOutTime: &now})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	v, err = repo.GetRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisitorApproved, v.Status)
	assert.False(t, v.CheckOutTime.Valid)
}
