package repository

import (
	"context"
	"testing"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEntries(period string) []entity.PayrollEntry {
	return []entity.PayrollEntry{
		{
			ID: "emp_2_" + period, Period: period,
			Employee:    entity.Employee{ID: "emp_2", FirstName: "Sophie", LastName: "Durand", Position: "Chef de projet", Department: "PMO"},
			GrossSalary: 4500, NetSalary: 3600, SocialCharges: 650, IncomeTax: 250,
			WorkingDays: 22, OvertimeHours: 15, Deductions: 1200,
		},
		{
			ID: "emp_1_" + period, Period: period,
			Employee:    entity.Employee{ID: "emp_1", FirstName: "Jean", LastName: "Martin", Position: "Développeur"},
			GrossSalary: 12000, NetSalary: 9500, SocialCharges: 1800, IncomeTax: 700,
			WorkingDays: 22, OvertimeHours: 80, Bonuses: 2000,
		},
	}
}

func TestPayrollRepository_SaveAndGetByPeriod(t *testing.T) {
	repo := NewPayrollRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	entries := sampleEntries("2024-12")
	require.NoError(t, repo.SaveBatch(ctx, "acme", "2024-12", entries))

	got, err := repo.GetByPeriod(ctx, "acme", "2024-12")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestPayrollRepository_UpsertKeepsOrderAndReplacesFigures(t *testing.T) {
	repo := NewPayrollRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	entries := sampleEntries("2024-12")
	require.NoError(t, repo.SaveBatch(ctx, "acme", "2024-12", entries))

	updated := entries[0]
	updated.GrossSalary = 4800
	require.NoError(t, repo.SaveBatch(ctx, "acme", "2024-12", []entity.PayrollEntry{updated}))

	got, err := repo.GetByPeriod(ctx, "acme", "2024-12")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "emp_2_2024-12", got[0].ID)
	assert.Equal(t, 4800.0, got[0].GrossSalary)
}

func TestPayrollRepository_ScopedByCompanyAndPeriod(t *testing.T) {
	repo := NewPayrollRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, "acme", "2024-11", sampleEntries("2024-11")))
	require.NoError(t, repo.SaveBatch(ctx, "globex", "2024-12", sampleEntries("2024-12")[:1]))

	got, err := repo.GetByPeriod(ctx, "acme", "2024-12")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = repo.GetByPeriod(ctx, "globex", "2024-12")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPayrollRepository_SaveBatchValidation(t *testing.T) {
	repo := NewPayrollRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, repo.SaveBatch(ctx, "", "2024-12", sampleEntries("2024-12")), entity.ErrCompanyRequired)
	assert.NoError(t, repo.SaveBatch(ctx, "acme", "2024-12", nil))
}
