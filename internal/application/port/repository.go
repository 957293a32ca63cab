package port

import (
	"context"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// PayrollRepository defines persistence operations for payroll entries
type PayrollRepository interface {
	// SaveBatch upserts entries for a company, keyed by (period, entry id)
	SaveBatch(ctx context.Context, companyID, period string, entries []entity.PayrollEntry) error
	// GetByPeriod returns a company's entries for one period in insertion order
	GetByPeriod(ctx context.Context, companyID, period string) ([]entity.PayrollEntry, error)
}

// AnalysisRepository defines persistence operations for analysis records
type AnalysisRepository interface {
	Create(ctx context.Context, record *entity.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*entity.AnalysisRecord, error)
	List(ctx context.Context, companyID string, limit, offset int) ([]*entity.AnalysisRecord, error)
	CountBySeverity(ctx context.Context, companyID string) (map[entity.Severity]int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
