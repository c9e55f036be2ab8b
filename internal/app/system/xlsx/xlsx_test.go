package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func buildSheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return &buf
}

func TestTemplateParsesBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	rows, errs, err := ParseUsers(&buf)
	if err != nil {
		t.Fatalf("ParseUsers: %v", err)
	}
	if len(errs) != 0 || len(rows) != 1 {
		t.Fatalf("rows = %d errs = %v", len(rows), errs)
	}
	r := rows[0]
	if r.Email != "jane@example.com" || r.Age != 25 || r.Role != models.RoleUser || r.Birthday == nil {
		t.Errorf("row = %+v", r)
	}
}

func TestParseUsers_Validation(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"Email", "Name", "Password", "Role", "Provider", "Age", "Birthday"},
		{"ok@example.com", "  Ok   User ", "pw", "", "", "30", "1990-05-01"},
		{"", "No Email", "pw"},
		{"bad-address", "Bad", "pw"},
		{"role@example.com", "Role", "pw", "superuser"},
		{"nopw@example.com", "No Pw", "", "user", "local"},
		{"social@example.com", "Social", "", "moderator", "google"},
		{"age@example.com", "Age", "pw", "", "", "old"},
		{"bday@example.com", "Bday", "pw", "", "", "", "01/02/2000"},
		{"", "", ""},
	})

	rows, errs, err := ParseUsers(buf)
	if err != nil {
		t.Fatalf("ParseUsers: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("valid rows = %d, want 2: %+v", len(rows), rows)
	}
	if rows[0].Name != "Ok User" || rows[0].Role != models.RoleUser || rows[0].Provider != models.ProviderLocal {
		t.Errorf("row 0 = %+v", rows[0])
	}
	want := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	if rows[0].Birthday == nil || !rows[0].Birthday.Equal(want) {
		t.Errorf("birthday = %v", rows[0].Birthday)
	}
	if rows[1].Provider != models.ProviderGoogle || rows[1].Role != models.RoleModerator {
		t.Errorf("row 1 = %+v", rows[1])
	}

	wantReasons := map[int]string{
		3: "missing email",
		4: "invalid email",
		5: "invalid role",
		6: "missing password",
		8: "invalid age",
		9: "invalid birthday, want YYYY-MM-DD",
	}
	if len(errs) != len(wantReasons) {
		t.Fatalf("errs = %+v", errs)
	}
	for _, e := range errs {
		if wantReasons[e.Line] != e.Reason {
			t.Errorf("line %d reason = %q, want %q", e.Line, e.Reason, wantReasons[e.Line])
		}
	}
}

func TestParseUsers_NoHeader(t *testing.T) {
	buf := buildSheet(t, [][]any{{"name", "mail"}, {"x", "y"}})
	if _, _, err := ParseUsers(buf); err != ErrNoHeader {
		t.Errorf("err = %v, want ErrNoHeader", err)
	}
	if _, _, err := ParseUsers(bytes.NewReader([]byte("not a zip"))); err == nil {
		t.Error("expected error for non-xlsx input")
	}
}

func TestExportUsers(t *testing.T) {
	bday := time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)
	users := []models.User{
		{ID: primitive.NewObjectID(), Name: "Ann", Email: "ann@example.com", Password: "secret-hash", Role: "admin", Provider: "local", Birthday: &bday},
		{ID: primitive.NewObjectID(), Name: "Bo", Email: "bo@example.com", Role: "user", Provider: "google"},
	}
	var buf bytes.Buffer
	if err := ExportUsers(&buf, users); err != nil {
		t.Fatalf("ExportUsers: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "_id" || rows[1][2] != "ann@example.com" || rows[1][8] != "2001-02-03" {
		t.Errorf("rows = %v", rows)
	}
	for _, row := range rows {
		for _, v := range row {
			if v == "secret-hash" {
				t.Fatal("export must not contain password hashes")
			}
		}
	}
}
