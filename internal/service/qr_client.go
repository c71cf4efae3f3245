package service

import (
	"context"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/workflow"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// QRClient 外部二维码生成服务客户端（门禁凭证用）
type QRClient struct {
	client *resty.Client
	size   int
	logger *zap.Logger
}

func NewQRClient(baseURL string, size int, logger *zap.Logger) *QRClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &QRClient{client: client, size: size, logger: logger}
}

// FetchPNG 获取编码了 data 的二维码 PNG
func (q *QRClient) FetchPNG(ctx context.Context, data string) ([]byte, error) {
	resp, err := q.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"size": fmt.Sprintf("%dx%d", q.size, q.size),
			"data": data,
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("qr service request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		q.logger.Warn("QR service returned non-200",
			zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("qr service returned status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// GatepassService 访客门禁凭证（二维码）
// 只有 APPROVED / CHECKED_IN 的请求可出码
type GatepassService struct {
	visitors *VisitorService
	qr       *QRClient
	logger   *zap.Logger
}

func NewGatepassService(visitors *VisitorService, qr *QRClient, logger *zap.Logger) *GatepassService {
	return &GatepassService{visitors: visitors, qr: qr, logger: logger}
}

// GatepassPNG 按 request_number 生成门禁二维码
func (g *GatepassService) GatepassPNG(ctx context.Context, requestNumber string) ([]byte, error) {
	v, err := g.visitors.visitors.GetByRequestNumber(ctx, requestNumber)
	if err != nil {
		return nil, err
	}
	status := workflow.EffectiveVisitorStatus(v.Status, v.ExpiresAt, g.visitors.now())
	if status != domain.VisitorApproved && status != domain.VisitorCheckedIn {
		return nil, fmt.Errorf("%w: gatepass unavailable for status %s", domain.ErrInvalidTransition, status)
	}
	return g.qr.FetchPNG(ctx, requestNumber)
}
