package repository

import (
	"context"
	"fmt"

	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// PayrollRepository implements port.PayrollRepository
type PayrollRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPayrollRepository creates a new payroll repository
func NewPayrollRepository(db *sqlite.DB, logger *zap.Logger) *PayrollRepository {
	return &PayrollRepository{
		db:     db,
		logger: logger,
	}
}

// SaveBatch upserts entries under (companyID, period) in a single transaction.
// Re-importing an entry id for the same period replaces its figures.
func (r *PayrollRepository) SaveBatch(ctx context.Context, companyID, period string, entries []entity.PayrollEntry) error {
	if companyID == "" {
		return entity.ErrCompanyRequired
	}
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO payroll_entries (
			company_id, period, entry_id, employee_id, first_name, last_name,
			position, department, gross_salary, net_salary, social_charges,
			income_tax, working_days, overtime_hours, bonuses, deductions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, period, entry_id) DO UPDATE SET
			employee_id = excluded.employee_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			position = excluded.position,
			department = excluded.department,
			gross_salary = excluded.gross_salary,
			net_salary = excluded.net_salary,
			social_charges = excluded.social_charges,
			income_tax = excluded.income_tax,
			working_days = excluded.working_days,
			overtime_hours = excluded.overtime_hours,
			bonuses = excluded.bonuses,
			deductions = excluded.deductions,
			updated_at = CURRENT_TIMESTAMP
	`

	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := sqlite.ExecutorFor(ctx, r.db.DB)
		for i := range entries {
			e := &entries[i]
			_, err := exec.ExecContext(ctx, query,
				companyID,
				period,
				e.ID,
				e.Employee.ID,
				e.Employee.FirstName,
				e.Employee.LastName,
				e.Employee.Position,
				e.Employee.Department,
				e.GrossSalary,
				e.NetSalary,
				e.SocialCharges,
				e.IncomeTax,
				e.WorkingDays,
				e.OvertimeHours,
				e.Bonuses,
				e.Deductions,
			)
			if err != nil {
				return fmt.Errorf("failed to save payroll entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save payroll batch",
			zap.String("company_id", companyID),
			zap.String("period", period),
			zap.Int("entries", len(entries)),
			zap.Error(err))
		return err
	}

	r.logger.Debug("Payroll batch saved",
		zap.String("company_id", companyID),
		zap.String("period", period),
		zap.Int("entries", len(entries)))
	return nil
}

// GetByPeriod retrieves a company's entries for one period
func (r *PayrollRepository) GetByPeriod(ctx context.Context, companyID, period string) ([]entity.PayrollEntry, error) {
	query := `
		SELECT entry_id, period, employee_id, first_name, last_name, position,
			department, gross_salary, net_salary, social_charges, income_tax,
			working_days, overtime_hours, bonuses, deductions
		FROM payroll_entries
		WHERE company_id = ? AND period = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db.DB).QueryContext(ctx, query, companyID, period)
	if err != nil {
		r.logger.Error("Failed to get payroll entries",
			zap.String("company_id", companyID),
			zap.String("period", period),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payroll entries: %w", err)
	}
	defer rows.Close()

	entries := []entity.PayrollEntry{}
	for rows.Next() {
		var e entity.PayrollEntry
		err := rows.Scan(
			&e.ID,
			&e.Period,
			&e.Employee.ID,
			&e.Employee.FirstName,
			&e.Employee.LastName,
			&e.Employee.Position,
			&e.Employee.Department,
			&e.GrossSalary,
			&e.NetSalary,
			&e.SocialCharges,
			&e.IncomeTax,
			&e.WorkingDays,
			&e.OvertimeHours,
			&e.Bonuses,
			&e.Deductions,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

var _ port.PayrollRepository = (*PayrollRepository)(nil)
