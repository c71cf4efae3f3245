package domain

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// MeterReading 抄表记录领域模型（对应 meter_readings 表）
// consumption = reading_value - previous_reading，写入时计算（decimal 精确，不走浮点）
type MeterReading struct {
	ReadingID       string          `db:"reading_id"`
	MeterSerial     string          `db:"meter_serial"`
	MeterType       string          `db:"meter_type"` // electricity / water / gas
	ReadingValue    decimal.Decimal `db:"reading_value"`
	PreviousReading decimal.Decimal `db:"previous_reading"`
	Consumption     decimal.Decimal `db:"consumption"`
	ReadingDate     time.Time       `db:"reading_date"`
	RecordedBy      string          `db:"recorded_by"`
	IsVerified      bool            `db:"is_verified"`
	VerifiedBy      sql.NullString  `db:"verified_by"`
	VerifiedAt      sql.NullTime    `db:"verified_at"`
	CreatedAt       time.Time       `db:"created_at"`
}
