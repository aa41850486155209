package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{
		"documents", "lands", "land_documents", "portions", "portion_documents",
		"portion_buyers", "records", "portion_records", "certifications",
		"operations", "schema_migrations",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db)
	if !errors.Is(err, ErrNeedsMigration) {
		t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNeedsMigration", err)
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != 1 {
		t.Errorf("LatestVersion() = %d, want 1", v)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO land_documents (land_id, position, document_id) VALUES (7, 0, 9)`)
	if err == nil {
		t.Error("expected foreign key violation for a document link to a missing land")
	}
}

func TestSchema_RecordKeyIsPerKind(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	insert := `INSERT INTO records (kind, id, name, portion_id, operator, created_at)
		VALUES (?, 0, 'r', 0, '0x1111111111111111111111111111111111111111', datetime('now'))`
	if _, err := db.Exec(insert, "product"); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if _, err := db.Exec(insert, "maintenance"); err != nil {
		t.Errorf("id 0 should be free for another kind: %v", err)
	}
	if _, err := db.Exec(insert, "product"); err == nil {
		t.Error("expected primary key violation for a duplicate product id")
	}
}

// openTestDB opens an in-memory SQLite database on a single connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	return db
}
