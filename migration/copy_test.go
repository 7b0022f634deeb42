package migration

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

// fixtureColumns builds deterministic fixture column descriptors, using
// gofakeit for the column names the way the teacher's utils.go uses a
// seeded *gofakeit.Faker to generate fixture data.
func fixtureColumns(n int) []MigratedColumn {
	f := gofakeit.New(42)
	lobTypes := []string{"BLOB", "CLOB", "TEXT", "BYTEA"}
	plainTypes := []string{"VARCHAR(255)", "NUMBER(10,2)", "INTEGER", "DATE"}
	cols := make([]MigratedColumn, 0, n)
	for i := 0; i < n; i++ {
		sourceType := plainTypes[i%len(plainTypes)]
		if i%3 == 0 {
			sourceType = lobTypes[i%len(lobTypes)]
		}
		name := fmt.Sprintf("%s_%d", strings.ToLower(f.FirstName()), i)
		cols = append(cols, MigratedColumn{
			Name:       name,
			SourceType: sourceType,
			TargetType: sourceType,
		})
	}
	return cols
}

func TestColumnsForCopyExcludesLOBsByDefault(t *testing.T) {
	cols := fixtureColumns(9)

	withoutLOB := columnsForCopy(cols, false)
	for _, name := range withoutLOB {
		for _, c := range cols {
			if c.Name == name && IsLargeBinary(c.SourceType) {
				t.Errorf("expected column %q (%s) to be excluded when MigrateLOBData is false", name, c.SourceType)
			}
		}
	}

	withLOB := columnsForCopy(cols, true)
	if len(withLOB) != len(cols) {
		t.Errorf("expected every column when MigrateLOBData is true, got %d of %d", len(withLOB), len(cols))
	}
}

func TestColumnsForCopyPreservesOrder(t *testing.T) {
	cols := []MigratedColumn{
		{Name: "id", SourceType: "INTEGER"},
		{Name: "payload", SourceType: "BLOB"},
		{Name: "created_at", SourceType: "DATE"},
	}
	got := columnsForCopy(cols, false)
	want := []string{"id", "created_at"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestBuildSelectStmt(t *testing.T) {
	d := PostgresDialect{}
	got := buildSelectStmt(d, "public", "orders", []string{"id", "total"})
	want := `SELECT "id", "total" FROM "public"."orders"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
