package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"
	"sitepass/internal/store"

	"go.uber.org/zap"
)

const (
	companyCodeKeyPrefix = "sitepass:companies:code:"
	companyListKey       = "sitepass:companies:all"
)

// CompanyDirectory 公司目录，公共签到接口每次提交都要查公司，
// 在 Repository 之上加一层 KV 缓存（写路径失效）
type CompanyDirectory struct {
	companies repository.CompaniesRepository
	kv        store.KV
	ttl       time.Duration
	logger    *zap.Logger
}

func NewCompanyDirectory(companies repository.CompaniesRepository, kv store.KV, ttl time.Duration, logger *zap.Logger) *CompanyDirectory {
	return &CompanyDirectory{companies: companies, kv: kv, ttl: ttl, logger: logger}
}

// GetByCode 按公司代码查询，缓存优先
// 缓存故障只记日志不阻断请求，回落到数据库
func (d *CompanyDirectory) GetByCode(ctx context.Context, companyCode string) (*domain.Company, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: company_code is required", domain.ErrValidation)
	}

	key := companyCodeKeyPrefix + companyCode
	if raw, err := d.kv.Get(ctx, key); err == nil {
		var c domain.Company
		if jerr := json.Unmarshal([]byte(raw), &c); jerr == nil {
			return &c, nil
		}
		d.logger.Warn("Corrupt company cache entry, dropping", zap.String("key", key))
		_ = d.kv.Delete(ctx, key)
	} else if !errors.Is(err, store.ErrMiss) {
		d.logger.Warn("Company cache read failed", zap.String("key", key), zap.Error(err))
	}

	c, err := d.companies.GetByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	if raw, jerr := json.Marshal(c); jerr == nil {
		if serr := d.kv.Set(ctx, key, string(raw), d.ttl); serr != nil {
			d.logger.Warn("Company cache write failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return c, nil
}

// List 全量公司列表（管理界面用），缓存优先
func (d *CompanyDirectory) List(ctx context.Context) ([]*domain.Company, error) {
	if raw, err := d.kv.Get(ctx, companyListKey); err == nil {
		var list []*domain.Company
		if jerr := json.Unmarshal([]byte(raw), &list); jerr == nil {
			return list, nil
		}
		_ = d.kv.Delete(ctx, companyListKey)
	}

	list, err := d.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	if raw, jerr := json.Marshal(list); jerr == nil {
		if serr := d.kv.Set(ctx, companyListKey, string(raw), d.ttl); serr != nil {
			d.logger.Warn("Company cache write failed", zap.String("key", companyListKey), zap.Error(serr))
		}
	}
	return list, nil
}

// Upsert 写公司并使相关缓存失效
func (d *CompanyDirectory) Upsert(ctx context.Context, c *domain.Company) (string, error) {
	if c.CompanyCode == "" || c.CompanyName == "" {
		return "", fmt.Errorf("%w: company_code and company_name are required", domain.ErrValidation)
	}
	companyID, err := d.companies.Upsert(ctx, c)
	if err != nil {
		return "", err
	}
	_ = d.kv.Delete(ctx, companyCodeKeyPrefix+c.CompanyCode)
	_ = d.kv.Delete(ctx, companyListKey)
	return companyID, nil
}
