package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportService 抄表数据导出（csv / json / xlsx）
type ExportService struct {
	meters  repository.MetersRepository
	roles   repository.RolesRepository
	maxRows int
	logger  *zap.Logger
}

func NewExportService(meters repository.MetersRepository, roles repository.RolesRepository, maxRows int, logger *zap.Logger) *ExportService {
	return &ExportService{meters: meters, roles: roles, maxRows: maxRows, logger: logger}
}

// ExportRequest 导出请求
type ExportRequest struct {
	Format    string `json:"format"` // csv / json / xlsx
	MeterType string `json:"meter_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ExportResult 导出产物
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

var exportHeader = []string{
	"Meter Serial", "Meter Type", "Reading Value", "Previous Reading",
	"Consumption", "Reading Date", "Recorded By", "Verified",
}

func exportRow(r *domain.MeterReading) []string {
	verified := "no"
	if r.IsVerified {
		verified = "yes"
	}
	return []string{
		r.MeterSerial,
		r.MeterType,
		r.ReadingValue.String(),
		r.PreviousReading.String(),
		r.Consumption.String(),
		r.ReadingDate.Format(dateLayout),
		r.RecordedBy,
		verified,
	}
}

// Export 按过滤条件导出抄表记录，行数受 maxRows 上限保护
func (s *ExportService) Export(ctx context.Context, req ExportRequest, user *domain.User) (*ExportResult, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermMetersExport) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermMetersExport)
	}

	filter, err := parseMetersFilter(req.MeterType, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	readings, err := s.meters.ListReadings(ctx, filter, s.maxRows)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102-150405")
	var result *ExportResult
	switch req.Format {
	case "csv", "":
		result, err = s.exportCSV(readings, timestamp)
	case "json":
		result, err = s.exportJSON(readings, timestamp)
	case "xlsx":
		result, err = s.exportXLSX(readings, timestamp)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, req.Format)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Meter readings exported",
		zap.String("format", req.Format),
		zap.Int("rows", len(readings)),
		zap.String("exported_by", user.UserID))
	return result, nil
}

func (s *ExportService) exportCSV(readings []*domain.MeterReading, timestamp string) (*ExportResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range readings {
		if err := w.Write(exportRow(r)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return &ExportResult{
		Data:        buf.Bytes(),
		ContentType: "text/csv; charset=utf-8",
		Filename:    fmt.Sprintf("meter-readings-%s.csv", timestamp),
	}, nil
}

func (s *ExportService) exportJSON(readings []*domain.MeterReading, timestamp string) (*ExportResult, error) {
	items := make([]ReadingItem, 0, len(readings))
	for _, r := range readings {
		items = append(items, toReadingItem(r))
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return &ExportResult{
		Data:        data,
		ContentType: "application/json",
		Filename:    fmt.Sprintf("meter-readings-%s.json", timestamp),
	}, nil
}

func (s *ExportService) exportXLSX(readings []*domain.MeterReading, timestamp string) (*ExportResult, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Readings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for i, r := range readings {
		for col, value := range exportRow(r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}
	f.SetColWidth(sheet, "A", "H", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode xlsx: %w", err)
	}
	return &ExportResult{
		Data:        buf.Bytes(),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename:    fmt.Sprintf("meter-readings-%s.xlsx", timestamp),
	}, nil
}
