package payroll

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// column is a canonical payroll field a header can map to
type column string

const (
	colEntryID       column = "entry_id"
	colEmployeeID    column = "employee_id"
	colEmployeeName  column = "employee_name"
	colFirstName     column = "first_name"
	colLastName      column = "last_name"
	colPosition      column = "position"
	colDepartment    column = "department"
	colPeriod        column = "period"
	colMonth         column = "month"
	colYear          column = "year"
	colGrossSalary   column = "gross_salary"
	colNetSalary     column = "net_salary"
	colSocialCharges column = "social_charges"
	colIncomeTax     column = "income_tax"
	colWorkingDays   column = "working_days"
	colOvertimeHours column = "overtime_hours"
	colBonuses       column = "bonuses"
	colDeductions    column = "deductions"
)

// headerAliases maps folded header text (lowercase, no accents, no
// separators) to its column. French and English spellings are accepted.
var headerAliases = map[string]column{
	"entryid": colEntryID, "idligne": colEntryID, "ligne": colEntryID,

	"employeeid": colEmployeeID, "idemploye": colEmployeeID, "idemployee": colEmployeeID,
	"matricule": colEmployeeID, "idsalarie": colEmployeeID,

	"nom": colEmployeeName, "name": colEmployeeName, "employeename": colEmployeeName,
	"nomcomplet": colEmployeeName, "fullname": colEmployeeName, "salarie": colEmployeeName,

	"prenom": colFirstName, "firstname": colFirstName,
	"nomdefamille": colLastName, "lastname": colLastName,

	"poste": colPosition, "position": colPosition, "fonction": colPosition, "jobtitle": colPosition,
	"departement": colDepartment, "department": colDepartment, "service": colDepartment,

	"periode": colPeriod, "period": colPeriod, "payrollperiod": colPeriod,
	"mois": colMonth, "month": colMonth, "periodmonth": colMonth,
	"annee": colYear, "year": colYear, "periodyear": colYear,

	"salairebrut": colGrossSalary, "brut": colGrossSalary, "grosssalary": colGrossSalary,
	"salairedebase": colGrossSalary, "basesalary": colGrossSalary,

	"salairenet": colNetSalary, "net": colNetSalary, "netsalary": colNetSalary,

	"chargessociales": colSocialCharges, "cotisations": colSocialCharges, "socialcharges": colSocialCharges,

	"impot": colIncomeTax, "impotsurlerevenu": colIncomeTax, "prelevementalasource": colIncomeTax,
	"incometax": colIncomeTax, "tax": colIncomeTax,

	"jourstravailles": colWorkingDays, "joursouvres": colWorkingDays, "workingdays": colWorkingDays,

	"heuressupplementaires": colOvertimeHours, "heuressup": colOvertimeHours,
	"overtimehours": colOvertimeHours, "overtime": colOvertimeHours,

	"primes": colBonuses, "prime": colBonuses, "bonuses": colBonuses, "bonus": colBonuses,

	"deductions": colDeductions, "retenues": colDeductions,
}

// optionalAmountColumns default to 0 when absent
var optionalAmountColumns = []column{
	colNetSalary,
	colSocialCharges,
	colIncomeTax,
	colWorkingDays,
	colOvertimeHours,
	colBonuses,
	colDeductions,
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldHeader turns "Heures supplémentaires" into "heuressupplementaires"
func foldHeader(header string) string {
	folded, _, err := transform.String(accentFolder, header)
	if err != nil {
		folded = header
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// headerIndex maps each recognized column to its position. The first
// occurrence of a column wins; unknown headers are returned separately.
type headerIndex struct {
	positions map[column]int
	unknown   []string
}

func indexHeader(header []string) headerIndex {
	idx := headerIndex{positions: make(map[column]int)}
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		col, ok := headerAliases[foldHeader(h)]
		if !ok {
			idx.unknown = append(idx.unknown, h)
			continue
		}
		if _, dup := idx.positions[col]; !dup {
			idx.positions[col] = i
		}
	}
	return idx
}

func (h headerIndex) has(col column) bool {
	_, ok := h.positions[col]
	return ok
}

// missingRequired lists the required columns absent from the header
func (h headerIndex) missingRequired() []string {
	var missing []string
	if !h.has(colEmployeeID) {
		missing = append(missing, string(colEmployeeID))
	}
	if !h.has(colEmployeeName) && !h.has(colFirstName) && !h.has(colLastName) {
		missing = append(missing, string(colEmployeeName))
	}
	if !h.has(colGrossSalary) {
		missing = append(missing, string(colGrossSalary))
	}
	return missing
}

// cell returns the trimmed value of col in row, "" when absent
func (h headerIndex) cell(row []string, col column) string {
	i, ok := h.positions[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
