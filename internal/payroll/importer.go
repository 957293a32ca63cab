package payroll

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// MaxFileSize bounds an uploaded payroll file
const MaxFileSize = 10 << 20

// Supported file formats
const (
	FormatXLSX = ".xlsx"
	FormatCSV  = ".csv"
)

// RowResult is the outcome of one data row. Row is the 1-based line in the
// sheet, header included.
type RowResult struct {
	Row      int                  `json:"row"`
	Status   string               `json:"status"`
	Messages []string             `json:"messages,omitempty"`
	Entry    *entity.PayrollEntry `json:"entry,omitempty"`
}

// ImportResult summarizes a parsed payroll file
type ImportResult struct {
	Filename string      `json:"filename"`
	Total    int         `json:"total"`
	Success  int         `json:"success"`
	Warnings int         `json:"warnings"`
	Errors   int         `json:"errors"`
	Notices  []string    `json:"notices,omitempty"`
	Rows     []RowResult `json:"data"`
}

// Entries returns the admissible entries (valid and warning rows) in file order
func (r *ImportResult) Entries() []entity.PayrollEntry {
	entries := make([]entity.PayrollEntry, 0, r.Success+r.Warnings)
	for i := range r.Rows {
		if r.Rows[i].Entry != nil && r.Rows[i].Status != entity.ImportStatusError {
			entries = append(entries, *r.Rows[i].Entry)
		}
	}
	return entries
}

// Importer reads payroll spreadsheets into entries
type Importer struct {
	logger *zap.Logger
}

// NewImporter creates a new importer
func NewImporter(logger *zap.Logger) *Importer {
	return &Importer{logger: logger}
}

// Parse reads an .xlsx (first sheet) or .csv payroll file. Rows without a
// period column take defaultPeriod. Row-level problems are reported in the
// result; only unreadable files and missing required columns fail.
func (imp *Importer) Parse(filename string, r io.Reader, defaultPeriod string) (*ImportResult, error) {
	format := strings.ToLower(filepath.Ext(filename))
	if format != FormatXLSX && format != FormatCSV {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read payroll file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatCSV:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	result, err := imp.parseRows(rows, defaultPeriod)
	if err != nil {
		return nil, err
	}
	result.Filename = filepath.Base(filename)

	imp.logger.Info("Payroll file parsed",
		zap.String("filename", result.Filename),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("warnings", result.Warnings),
		zap.Int("errors", result.Errors))

	return result, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// detectDelimiter picks ';' for spreadsheets exported with a French locale
func detectDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

func (imp *Importer) parseRows(rows [][]string, defaultPeriod string) (*ImportResult, error) {
	headerRow := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, ErrEmptyFile
	}

	header := indexHeader(rows[headerRow])
	if missing := header.missingRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	result := &ImportResult{Rows: []RowResult{}}
	for _, col := range optionalAmountColumns {
		if !header.has(col) {
			result.Notices = append(result.Notices, fmt.Sprintf("column %s not found, defaulted to 0", col))
		}
	}
	for _, h := range header.unknown {
		result.Notices = append(result.Notices, fmt.Sprintf("column %q ignored", h))
	}

	seen := make(map[string]int)
	for i := headerRow + 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}

		row := parseRow(header, rows[i], defaultPeriod)
		row.Row = i + 1

		if row.Entry != nil {
			if first, dup := seen[row.Entry.ID]; dup {
				row.Status = entity.ImportStatusError
				row.Messages = append(row.Messages, fmt.Sprintf("duplicate entry id %s (first seen on row %d)", row.Entry.ID, first))
			} else if row.Status != entity.ImportStatusError {
				seen[row.Entry.ID] = row.Row
			}
		}

		result.Total++
		switch row.Status {
		case entity.ImportStatusValid:
			result.Success++
		case entity.ImportStatusWarning:
			result.Warnings++
		default:
			result.Errors++
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// rowBuilder accumulates messages while a row is mapped to an entry
type rowBuilder struct {
	header   headerIndex
	cells    []string
	errors   []string
	warnings []string
}

func parseRow(header headerIndex, cells []string, defaultPeriod string) RowResult {
	b := &rowBuilder{header: header, cells: cells}

	entry := entity.PayrollEntry{
		Employee: entity.Employee{
			ID:         b.text(colEmployeeID),
			FirstName:  b.text(colFirstName),
			LastName:   b.text(colLastName),
			Position:   b.text(colPosition),
			Department: b.text(colDepartment),
		},
	}

	if entry.Employee.FirstName == "" && entry.Employee.LastName == "" {
		entry.Employee.FirstName, entry.Employee.LastName = splitFullName(b.text(colEmployeeName))
	}

	if entry.Employee.ID == "" {
		b.errors = append(b.errors, "employee id is required")
	}
	if entry.Employee.FullName() == "" {
		b.errors = append(b.errors, "employee name is required")
	}

	entry.Period = b.period(defaultPeriod)

	entry.GrossSalary = b.amount(colGrossSalary, true)
	entry.NetSalary = b.amount(colNetSalary, false)
	entry.SocialCharges = b.amount(colSocialCharges, false)
	entry.IncomeTax = b.amount(colIncomeTax, false)
	entry.WorkingDays = b.amount(colWorkingDays, false)
	entry.OvertimeHours = b.amount(colOvertimeHours, false)
	entry.Bonuses = b.amount(colBonuses, false)
	entry.Deductions = b.amount(colDeductions, false)

	if header.has(colNetSalary) && entry.NetSalary > entry.GrossSalary {
		b.warnings = append(b.warnings, "net salary is greater than gross salary")
	}

	entry.ID = b.text(colEntryID)
	if entry.ID == "" && entry.Employee.ID != "" {
		entry.ID = entry.Employee.ID
		if entry.Period != "" {
			entry.ID += "_" + entry.Period
		}
	}

	result := RowResult{Entry: &entry}
	switch {
	case len(b.errors) > 0:
		result.Status = entity.ImportStatusError
		result.Messages = append(b.errors, b.warnings...)
	case len(b.warnings) > 0:
		result.Status = entity.ImportStatusWarning
		result.Messages = b.warnings
	default:
		result.Status = entity.ImportStatusValid
	}
	return result
}

func (b *rowBuilder) text(col column) string {
	return b.header.cell(b.cells, col)
}

// amount parses a non-negative number. Blank required cells are errors,
// blank optional cells default to 0 with a warning.
func (b *rowBuilder) amount(col column, required bool) float64 {
	if !b.header.has(col) {
		return 0
	}

	raw := b.text(col)
	if raw == "" {
		if required {
			b.errors = append(b.errors, fmt.Sprintf("%s is required", col))
		} else {
			b.warnings = append(b.warnings, fmt.Sprintf("%s is empty, defaulted to 0", col))
		}
		return 0
	}

	v, err := parseAmount(raw)
	if err != nil {
		b.errors = append(b.errors, fmt.Sprintf("%s: %v", col, err))
		return 0
	}
	if v < 0 {
		b.errors = append(b.errors, fmt.Sprintf("%s must not be negative", col))
		return 0
	}
	return v
}

// period prefers an explicit period column, then month and year columns
func (b *rowBuilder) period(defaultPeriod string) string {
	if p := b.text(colPeriod); p != "" {
		return p
	}

	month, year := b.text(colMonth), b.text(colYear)
	if month == "" && year == "" {
		return defaultPeriod
	}

	m, mErr := strconv.Atoi(month)
	y, yErr := strconv.Atoi(year)
	if mErr != nil || yErr != nil || m < 1 || m > 12 || y < 1900 || y > 9999 {
		b.errors = append(b.errors, fmt.Sprintf("invalid period month=%q year=%q", month, year))
		return defaultPeriod
	}
	return fmt.Sprintf("%04d-%02d", y, m)
}

var errInvalidNumber = errors.New("invalid number")

// amountCleaner strips currency symbols and thousands spaces
var amountCleaner = strings.NewReplacer("€", "", "EUR", "", "eur", "", " ", "", "\u00a0", "", "\u202f", "")

// parseAmount accepts "4500", "4 500,50", "4,500.50", "4.500,50" and
// "12,000". Amounts carry at most two decimals, so a separator that repeats
// or that is followed by exactly three digits groups thousands.
func parseAmount(raw string) (float64, error) {
	s := amountCleaner.Replace(raw)

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimal, group := ",", "."
		if lastDot > lastComma {
			decimal, group = ".", ","
		}
		s = strings.ReplaceAll(s, group, "")
		s = strings.Replace(s, decimal, ".", 1)
	case lastDot >= 0:
		s = normalizeSeparator(s, ".")
	case lastComma >= 0:
		s = normalizeSeparator(s, ",")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w %q", errInvalidNumber, raw)
	}
	return v, nil
}

// normalizeSeparator rewrites a number that uses sep as its only separator
func normalizeSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 || groupsThousands(s, sep) {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}

// groupsThousands reports whether the single sep in s is followed by
// exactly three digits after a non-zero integer part ("0,500" stays 0.5)
func groupsThousands(s, sep string) bool {
	intPart, frac, _ := strings.Cut(s, sep)
	intPart = strings.TrimLeft(intPart, "+-")
	if len(frac) != 3 || strings.Trim(intPart, "0") == "" {
		return false
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitFullName splits "Jean Martin" into first and last name on the first space
func splitFullName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, found := strings.Cut(full, " ")
	if !found {
		return full, ""
	}
	return first, strings.TrimSpace(last)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
