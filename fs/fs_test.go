package appfs

import (
	"strings"
	"testing"
)

// tableDDL extracts the CREATE TABLE block for name from the migration.
func tableDDL(t *testing.T, sql, name string) string {
	t.Helper()

	start := strings.Index(sql, "CREATE TABLE "+name)
	if start < 0 {
		t.Fatalf("CREATE TABLE %s not found", name)
	}
	end := strings.Index(sql[start:], ";")
	if end < 0 {
		t.Fatalf("CREATE TABLE %s not terminated", name)
	}
	return sql[start : start+end]
}

func TestInitMigration_historyHasNoForeignKeys(t *testing.T) {
	data, err := FS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	sql := string(data)

	// attendance and grade history must outlive the entities it references:
	// deleting a student, subject or class leaves orphaned rows rather than
	// failing on a referencing record
	for _, table := range []string{"attendances", "grades"} {
		ddl := tableDDL(t, sql, table)
		if strings.Contains(ddl, "REFERENCES") {
			t.Errorf("%s must not declare foreign keys, deletes would be blocked:\n%s", table, ddl)
		}
	}

	// assignment FKs stay, and unassign rather than block
	for _, table := range []string{"students", "subjects"} {
		ddl := tableDDL(t, sql, table)
		if !strings.Contains(ddl, "ON DELETE SET NULL") {
			t.Errorf("%s assignment FK should unassign on delete:\n%s", table, ddl)
		}
	}

	// upserts rely on the natural keys being enforced in storage too
	for _, index := range []string{
		"CREATE UNIQUE INDEX attendances_natural_key",
		"CREATE UNIQUE INDEX grades_natural_key",
	} {
		if !strings.Contains(sql, index) {
			t.Errorf("missing %q", index)
		}
	}
}
