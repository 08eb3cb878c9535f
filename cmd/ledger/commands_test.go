package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGER_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runApp(t, newApp(), args...)
}

func runApp(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	defer a.close()
	cmd := a.rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddListTotalAcrossRuns(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "add", "Lunch", "15000", "-c", "Food", "-d", "Jan 01, 2024"); err != nil {
		t.Fatalf("add lunch: %v", err)
	}
	out, err := run(t, "add", "Taxi", "8000", "--category", "Transport")
	if err != nil {
		t.Fatalf("add taxi: %v", err)
	}
	if !strings.Contains(out, "added #0 Taxi 8000 (Transport)") {
		t.Fatalf("unexpected add output %q", out)
	}

	out, err = run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "0") || !strings.Contains(lines[1], "Taxi") || !strings.Contains(lines[2], "Lunch") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	out, err = run(t, "total")
	if err != nil || strings.TrimSpace(out) != "23000" {
		t.Fatalf("total = %q, %v", out, err)
	}

	out, err = run(t, "by-category")
	if err != nil {
		t.Fatalf("by-category: %v", err)
	}
	cats := strings.Split(strings.TrimSpace(out), "\n")
	if len(cats) != 2 || !strings.HasPrefix(cats[0], "Food") || !strings.HasPrefix(cats[1], "Transport") {
		t.Fatalf("unexpected by-category output:\n%s", out)
	}
}

func TestRemove(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "add", "Lunch", "15000"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := run(t, "rm", "5"); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := run(t, "rm", "x"); err == nil {
		t.Fatal("expected error for non-integer index")
	}
	out, err := run(t, "rm", "0")
	if err != nil || !strings.Contains(out, "removed Lunch") {
		t.Fatalf("rm = %q, %v", out, err)
	}
	out, _ = run(t, "total")
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("expected empty ledger, total %q", out)
	}
}

func TestAddRejectsInvalidAmount(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "add", "--", "Lunch", "-5"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := run(t, "add", "Lunch", "abc"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExportRequiresSpreadsheet(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "export"); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
}

func TestImportAddsSheetRowsInSheetOrder(t *testing.T) {
	setupEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values":[
			["Title","Amount","Category","Date"],
			["Taxi","8000","Transport","Jan 02, 2024"],
			["Lunch",15000,"Food","Jan 01, 2024"],
			["","1","Food","Jan 01, 2024"]
		]}`))
	}))
	defer ts.Close()

	if _, err := run(t, "add", "Coffee", "3"); err != nil {
		t.Fatalf("add: %v", err)
	}

	a := newApp()
	a.sheetsOpts = []goption.ClientOption{goption.WithEndpoint(ts.URL + "/"), goption.WithHTTPClient(ts.Client())}
	out, err := runApp(t, a, "import")
	if err != nil || !strings.Contains(out, "imported 2 expenses") {
		t.Fatalf("import = %q, %v", out, err)
	}

	out, err = run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || !strings.Contains(lines[1], "Taxi") || !strings.Contains(lines[2], "Lunch") || !strings.Contains(lines[3], "Coffee") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
}

func TestImportRequiresSpreadsheet(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "import"); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
}
