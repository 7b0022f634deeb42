package migration

import "testing"

func TestClassifySourceType(t *testing.T) {
	tests := []struct {
		engine EngineID
		in     string
		want   typeFamily
	}{
		{EnginePostgres, "character varying(255)", famVarchar},
		{EnginePostgres, "numeric(10,2)", famNumeric},
		{EnginePostgres, "timestamp with time zone", famTimestampTZ},
		{EnginePostgres, "timestamp", famTimestamp},
		{EnginePostgres, "bytea", famBlob},
		{EnginePostgres, "jsonb", famJSON},
		{EnginePostgres, "uuid", famUUID},
		{EngineOracle, "VARCHAR2(50)", famVarchar},
		{EngineOracle, "NUMBER(10,2)", famNumeric},
		{EngineOracle, "NUMBER", famNumeric},
		{EngineOracle, "CLOB", famClob},
		{EngineOracle, "DATE", famTimestamp},
		{EngineSQLServer, "NVARCHAR(100)", famNVarchar},
		{EngineSQLServer, "DATETIMEOFFSET", famTimestampTZ},
		{EngineSQLServer, "UNIQUEIDENTIFIER", famUUID},
		{EngineMySQL, "MEDIUMTEXT", famClob},
		{EngineMySQL, "TINYINT", famInt8},
		{EngineMySQL, "JSON", famJSON},
		{EnginePostgres, "some_made_up_type", famOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine)+"/"+tt.in, func(t *testing.T) {
			got := classifySourceType(tt.engine, tt.in)
			if got.family != tt.want {
				t.Errorf("classifySourceType(%s, %q) family = %v, want %v", tt.engine, tt.in, got.family, tt.want)
			}
		})
	}
}

func TestClassifySourceTypePrecisionAndLength(t *testing.T) {
	spec := classifySourceType(EngineOracle, "NUMBER(10,2)")
	if spec.precision != 10 || spec.scale != 2 {
		t.Errorf("NUMBER(10,2) => precision=%d scale=%d, want 10,2", spec.precision, spec.scale)
	}

	spec = classifySourceType(EnginePostgres, "VARCHAR(40)")
	if spec.length != 40 {
		t.Errorf("VARCHAR(40) => length=%d, want 40", spec.length)
	}
}

func TestMigrateTypeDirectTemplate(t *testing.T) {
	var errs []MigrationError
	got := MigrateType(&errs, EngineOracle, EnginePostgres, "amount", "NUMBER(10,2)", nil)
	if got != "NUMERIC(10,2)" {
		t.Errorf("got %q, want NUMERIC(10,2)", got)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestMigrateTypeOverride(t *testing.T) {
	var errs []MigrationError
	overrides := map[string]string{"legacy_id": "TEXT"}
	got := MigrateType(&errs, EngineOracle, EnginePostgres, "LEGACY_ID", "NUMBER(10,2)", overrides)
	if got != "TEXT" {
		t.Errorf("expected external column override to win, got %q", got)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors for an override, got %v", errs)
	}
}

func TestMigrateTypeDirectFamilyPresentInNativeOrdinal(t *testing.T) {
	// BINARY classifies to famBinary, which MySQL both recognizes in its
	// own native ordinal and renders directly, so no widening is needed.
	var errs []MigrationError
	got := MigrateType(&errs, EngineSQLServer, EngineMySQL, "raw_col", "BINARY(16)", nil)
	if got != "VARBINARY(255)" {
		t.Errorf("got %q, want VARBINARY(255)", got)
	}
}

func TestMigrateTypeReferenceOrdinalWiden(t *testing.T) {
	// SQL Server has no famInterval in its target templates, and
	// famInterval is absent from SQL Server's own native ordinal list, so
	// MigrateType must fall through to the dialect-neutral reference
	// ordinal to find the next renderable family.
	var errs []MigrationError
	got := MigrateType(&errs, EnginePostgres, EngineSQLServer, "span", "INTERVAL", nil)
	if got == "" {
		t.Fatalf("expected a widened type, got empty string with errs=%v", errs)
	}
}

func TestMigrateTypeUnsupported(t *testing.T) {
	var errs []MigrationError
	got := MigrateType(&errs, EnginePostgres, EnginePostgres, "weird", "totally_unknown_type", nil)
	if got != "" {
		t.Errorf("expected empty result for an unsupported family, got %q", got)
	}
	if !hasFatal(errs, KindTypeUnsupported) {
		t.Errorf("expected a KindTypeUnsupported error, got %v", errs)
	}
}

func TestMigrateTypePrecisionLoss(t *testing.T) {
	var errs []MigrationError
	got := MigrateType(&errs, EnginePostgres, EngineMySQL, "big_num", "NUMERIC(70,10)", nil)
	if got == "" {
		t.Fatalf("expected a capped type, got empty string")
	}
	if !hasFatal(errs, KindTypePrecisionLoss) {
		t.Errorf("expected a KindTypePrecisionLoss error for a precision above MySQL's DECIMAL cap, got %v", errs)
	}
}

func TestIsLargeBinary(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"BLOB", true},
		{"CLOB", true},
		{"BYTEA", true},
		{"RAW(2000)", true},
		{"LONGTEXT", true},
		{"TEXT", true},
		{"VARCHAR(255)", false},
		{"NUMBER(10,2)", false},
		{"INT", false},
	}
	for _, tt := range tests {
		if got := IsLargeBinary(tt.in); got != tt.want {
			t.Errorf("IsLargeBinary(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
