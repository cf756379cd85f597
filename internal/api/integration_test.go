//go:build integration

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/talk2data/talk2data/internal/archive"
	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/database"
	"github.com/talk2data/talk2data/internal/pipeline"
	"github.com/talk2data/talk2data/internal/sample"
	"github.com/talk2data/talk2data/internal/workspace"
)

func TestAskAgainstPostgresDefaultDatabase(t *testing.T) {
	adminDSN := strings.TrimSpace(os.Getenv("TALK2DATA_TEST_POSTGRES_DSN"))
	if adminDSN == "" {
		t.Skip("TALK2DATA_TEST_POSTGRES_DSN is not set")
	}

	testDSN, cleanup := createTemporaryDatabase(t, adminDSN)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	src, err := database.ParseSource(testDSN)
	if err != nil {
		t.Fatalf("ParseSource() error = %v", err)
	}
	inserted, err := sample.Seed(ctx, src)
	if err != nil {
		t.Fatalf("sample.Seed() error = %v", err)
	}
	if inserted != 20 {
		t.Fatalf("inserted = %d", inserted)
	}

	store := &fakeObjectStore{}
	cfg := loadTestConfig(t, nil)
	completer := &scriptedCompleter{}
	ws := workspace.New(
		catalog.NewDirectory(t.TempDir(), testDSN, 5*time.Second),
		completer,
		pipeline.Options{AllowWrites: true, RowLimit: 100, Archiver: archive.New(store, "results")},
	)
	h := NewHandler(cfg, Dependencies{Workspace: ws, Archives: store})

	completer.text = "SELECT name, salary FROM employee WHERE department = 'HR' ORDER BY name"
	hr := decodeAsk(t, postAsk(t, h, `{"question":"List the employees in HR"}`, ""))
	if hr.Outcome.Kind != "rows" || hr.Table != "employee" {
		t.Fatalf("hr = %+v", hr)
	}
	if len(hr.Outcome.Rows) == 0 {
		t.Fatal("expected HR employees")
	}
	if !strings.HasSuffix(hr.ArchiveKey, ".parquet") {
		t.Fatalf("archive_key = %q", hr.ArchiveKey)
	}

	completer.text = "DELETE FROM employee WHERE name = 'Vikram'"
	removed := decodeAsk(t, postAsk(t, h, `{"question":"delete employee Vikram"}`, ""))
	if removed.Outcome.Kind != "affected" {
		t.Fatalf("removed = %+v", removed)
	}

	db, err := sql.Open("pgx", testDSN)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	var remaining int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employee WHERE name = 'Vikram'`).Scan(&remaining); err != nil {
		t.Fatalf("count remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d", remaining)
	}

	completer.text = "SELECT * FROM missing_table"
	failed := decodeAsk(t, postAsk(t, h, `{"question":"show the employee list"}`, ""))
	if failed.Outcome.Kind != "execution_failure" || !strings.HasPrefix(failed.Outcome.Message, "SQL error: ") {
		t.Fatalf("failed = %+v", failed)
	}

	download := httptest.NewRecorder()
	h.ServeHTTP(download, httptest.NewRequest(http.MethodGet, "/v1/archives/"+hr.ArchiveKey, nil))
	if download.Code != http.StatusOK || download.Body.Len() == 0 {
		t.Fatalf("archive download status = %d", download.Code)
	}
}

func decodeAsk(t *testing.T, rr *httptest.ResponseRecorder) pipeline.View {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var body pipeline.View
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode ask response error = %v", err)
	}
	return body
}

func createTemporaryDatabase(t *testing.T, adminDSN string) (string, func()) {
	t.Helper()

	parsed, err := url.Parse(adminDSN)
	if err != nil {
		t.Fatalf("url.Parse(adminDSN) error = %v", err)
	}
	adminDBName := strings.TrimPrefix(parsed.Path, "/")
	if adminDBName == "" {
		t.Fatal("admin DSN must include a database name")
	}

	adminDB, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("sql.Open(adminDSN) error = %v", err)
	}

	name := fmt.Sprintf("talk2data_it_api_%d", time.Now().UnixNano())
	if _, err := adminDB.Exec(`CREATE DATABASE ` + name); err != nil {
		t.Fatalf("CREATE DATABASE failed: %v", err)
	}

	testURL := *parsed
	testURL.Path = "/" + name
	testDSN := testURL.String()

	cleanup := func() {
		defer func() { _ = adminDB.Close() }()
		if _, err := adminDB.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name); err != nil {
			t.Fatalf("terminate test db sessions: %v", err)
		}
		if _, err := adminDB.Exec(`DROP DATABASE ` + name); err != nil {
			t.Fatalf("DROP DATABASE failed: %v", err)
		}
	}
	return testDSN, cleanup
}
