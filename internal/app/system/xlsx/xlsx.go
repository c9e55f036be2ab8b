// internal/app/system/xlsx/xlsx.go
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Upload and row limits for spreadsheet imports.
const (
	MaxUploadSize = 5 << 20 // 5 MB
	MaxRows       = 5000
)

// SheetName is the worksheet written by exports and the template.
const SheetName = "Users"

// DateLayout is the birthday format in sheets.
const DateLayout = "2006-01-02"

// ImportColumns is the header row of the import template.
var ImportColumns = []string{"name", "email", "password", "age", "gender", "bio", "role", "provider", "birthday", "avatar"}

var exportColumns = []string{"_id", "name", "email", "role", "provider", "age", "gender", "bio", "birthday", "created_at"}

// ErrNoHeader is returned when the first row does not name an email column.
var ErrNoHeader = errors.New("xlsx: first row must be a header with an email column")

/*─────────────────────────────────────────────────────────────────────────────*
| Writing                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ExportUsers writes users as a workbook to w. Credentials never appear.
func ExportUsers(w io.Writer, users []models.User) error {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		birthday := ""
		if u.Birthday != nil {
			birthday = u.Birthday.Format(DateLayout)
		}
		rows = append(rows, []any{
			u.ID.Hex(), u.Name, u.Email, u.Role, u.Provider,
			u.Age, u.Gender, u.Bio, birthday,
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeSheet(w, exportColumns, rows)
}

// WriteTemplate writes an empty import workbook with one example row.
func WriteTemplate(w io.Writer) error {
	example := []any{"Jane Doe", "jane@example.com", "changeme123", 25, "female", "", models.RoleUser, models.ProviderLocal, "2000-01-31", ""}
	return writeSheet(w, ImportColumns, [][]any{example})
}

func writeSheet(w io.Writer, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &head); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 20); err != nil {
		return err
	}

	return f.Write(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reading                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ImportRow is one validated user row from an import sheet.
type ImportRow struct {
	Line     int
	Name     string
	Email    string
	Password string
	Age      int
	Gender   string
	Bio      string
	Role     string
	Provider string
	Birthday *time.Time
	Avatar   string
}

// RowError explains why a sheet line was rejected.
type RowError struct {
	Line   int    `json:"line"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// ParseUsers reads the first worksheet of an import workbook. Columns are
// matched by header name in any order. Valid rows come back normalized with
// role and provider defaulted; invalid rows are reported, not fatal.
func ParseUsers(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoHeader
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, ErrNoHeader
	}
	if len(raw)-1 > MaxRows {
		return nil, nil, fmt.Errorf("xlsx: too many rows (max %d)", MaxRows)
	}

	col := make(map[string]int, len(raw[0]))
	for i, h := range raw[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["email"]; !ok {
		return nil, nil, ErrNoHeader
	}
	cell := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		rows []ImportRow
		errs []RowError
	)
	for i, rec := range raw[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		row, reason := parseRow(line, func(name string) string { return cell(rec, name) })
		if reason != "" {
			errs = append(errs, RowError{Line: line, Email: row.Email, Reason: reason})
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

func parseRow(line int, get func(string) string) (ImportRow, string) {
	row := ImportRow{
		Line:     line,
		Name:     normalize.Name(get("name")),
		Email:    normalize.Email(get("email")),
		Password: get("password"),
		Gender:   get("gender"),
		Bio:      get("bio"),
		Role:     normalize.Role(get("role")),
		Provider: normalize.Role(get("provider")),
		Avatar:   get("avatar"),
	}
	if row.Email == "" {
		return row, "missing email"
	}
	if _, err := mail.ParseAddress(row.Email); err != nil {
		return row, "invalid email"
	}
	if row.Role == "" {
		row.Role = models.RoleUser
	}
	if !models.IsValidRole(row.Role) {
		return row, "invalid role"
	}
	if row.Provider == "" {
		row.Provider = models.ProviderLocal
	}
	if !models.IsValidProvider(row.Provider) {
		return row, "invalid provider"
	}
	if row.Provider == models.ProviderLocal && row.Password == "" {
		return row, "missing password"
	}
	if s := get("age"); s != "" {
		age, err := strconv.Atoi(s)
		if err != nil || age < 0 {
			return row, "invalid age"
		}
		row.Age = age
	}
	if s := get("birthday"); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return row, "invalid birthday, want YYYY-MM-DD"
		}
		row.Birthday = &t
	}
	return row, ""
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
