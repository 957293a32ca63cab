package ai

import "github.com/garyjia/scanpaie/internal/domain/entity"

// SalaryRangeTable maps a job position to its expected monthly gross salary band.
// Positions missing from Ranges fall back to Default.
type SalaryRangeTable struct {
	Ranges  map[string]entity.ValueRange
	Default entity.ValueRange
}

// DefaultSalaryRanges returns the built-in position bands (EUR per month)
func DefaultSalaryRanges() SalaryRangeTable {
	return SalaryRangeTable{
		Ranges: map[string]entity.ValueRange{
			"Développeur":    {Min: 3000, Max: 6000},
			"Chef de projet": {Min: 4000, Max: 8000},
			"Analyste":       {Min: 3500, Max: 6500},
			"Manager":        {Min: 5000, Max: 10000},
			"Directeur":      {Min: 8000, Max: 15000},
			"Stagiaire":      {Min: 600, Max: 1500},
			"Assistant":      {Min: 2000, Max: 3500},
		},
		Default: entity.ValueRange{Min: 2000, Max: 8000},
	}
}

// Lookup returns the band for position, or the default band
func (t SalaryRangeTable) Lookup(position string) entity.ValueRange {
	if r, ok := t.Ranges[position]; ok {
		return r
	}
	return t.Default
}

// TaxBracket applies Rate (percent) to gross salaries up to and including UpTo
type TaxBracket struct {
	UpTo float64
	Rate float64
}

// TaxBracketTable is an ascending list of brackets plus the rate above the last one
type TaxBracketTable struct {
	Brackets []TaxBracket
	TopRate  float64
}

// DefaultTaxBrackets returns the simplified progressive withholding table
func DefaultTaxBrackets() TaxBracketTable {
	return TaxBracketTable{
		Brackets: []TaxBracket{
			{UpTo: 3000, Rate: 8},
			{UpTo: 5000, Rate: 12},
			{UpTo: 8000, Rate: 18},
			{UpTo: 12000, Rate: 25},
		},
		TopRate: 30,
	}
}

// ExpectedRate returns the expected income tax rate (percent) for grossSalary
func (t TaxBracketTable) ExpectedRate(grossSalary float64) float64 {
	for _, b := range t.Brackets {
		if grossSalary <= b.UpTo {
			return b.Rate
		}
	}
	return t.TopRate
}
