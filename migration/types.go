package migration

import (
	"regexp"
	"strconv"
	"strings"
)

// typeFamily is a canonical, dialect-neutral type family. The ordinal
// spaces below are built over this enumeration.
type typeFamily int

const (
	famChar typeFamily = iota
	famVarchar
	famNChar
	famNVarchar
	famClob
	famNClob
	famBinary
	famVarbinary
	famBlob
	famInt8
	famInt16
	famInt32
	famInt64
	famNumeric
	famReal
	famFloat
	famDouble
	famBoolean
	famDate
	famTime
	famTimestamp
	famTimestampTZ
	famInterval
	famJSON
	famXML
	famUUID
	famOther
)

// typeSpec carries the precision/scale/length recovered from a declared
// source type, alongside its classified family.
type typeSpec struct {
	family    typeFamily
	precision int
	scale     int
	length    int
}

var declRe = regexp.MustCompile(`^\s*([A-Za-z0-9_ ]+)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?`)

// classifySourceType parses a dialect-native declared type (e.g.
// "NUMBER(10,2)", "VARCHAR2(50)", "timestamp(6) with time zone") into a
// typeSpec. The engine's own keyword table is consulted (an engine without
// one uses the Postgres table); a head word that no keyword prefixes
// classifies as famOther.
func classifySourceType(engine EngineID, sourceType string) typeSpec {
	raw := strings.TrimSpace(sourceType)
	upper := strings.ToUpper(raw)
	withTZ := strings.Contains(upper, "WITH TIME ZONE") || strings.Contains(upper, "WITH LOCAL TIME ZONE")

	m := declRe.FindStringSubmatch(raw)
	head := strings.ToUpper(strings.TrimSpace(raw))
	precision, scale, length := 0, 0, 0
	if m != nil {
		head = strings.ToUpper(strings.TrimSpace(m[1]))
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			if m[3] != "" {
				precision, scale = n, mustAtoi(m[3])
			} else {
				precision, length = n, n
			}
		}
	}

	keywords := keywordTables[engine]
	if keywords == nil {
		keywords = keywordTables[EnginePostgres]
	}
	// Several keyword tables contain one keyword that is itself a prefix of
	// another ("CHAR" vs "CHARACTER VARYING", "VARCHAR" vs "VARCHAR2"), so
	// matching must check the longest keyword first -- map iteration order
	// is unspecified and would otherwise make classification nondeterministic.
	if fam, ok := matchLongestKeyword(keywords, head); ok {
		if fam == famTimestamp && withTZ {
			fam = famTimestampTZ
		}
		return typeSpec{family: fam, precision: precision, scale: scale, length: length}
	}
	return typeSpec{family: famOther, precision: precision, scale: scale, length: length}
}

func matchLongestKeyword(keywords map[string]typeFamily, head string) (typeFamily, bool) {
	bestLen := -1
	var best typeFamily
	found := false
	for kw, fam := range keywords {
		if strings.HasPrefix(head, kw) && len(kw) > bestLen {
			bestLen = len(kw)
			best = fam
			found = true
		}
	}
	return best, found
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// keywordTables maps each engine's declared-type head word to a canonical
// family. Where one keyword is a prefix of another ("VARCHAR" and
// "VARCHAR2", "CHAR" and "CHARACTER VARYING"), matchLongestKeyword picks the
// longest keyword that prefixes the head word, so map iteration order does
// not affect the result.
var keywordTables = map[EngineID]map[string]typeFamily{
	EngineOracle: {
		"CHAR":             famChar,
		"VARCHAR2":         famVarchar,
		"VARCHAR":          famVarchar,
		"NCHAR":            famNChar,
		"NVARCHAR2":        famNVarchar,
		"CLOB":             famClob,
		"NCLOB":            famNClob,
		"RAW":              famVarbinary,
		"LONG RAW":         famBlob,
		"BLOB":             famBlob,
		"NUMBER":           famNumeric,
		"FLOAT":            famFloat,
		"BINARY_FLOAT":     famReal,
		"BINARY_DOUBLE":    famDouble,
		"DATE":             famTimestamp,
		"TIMESTAMP":        famTimestamp,
		"INTERVAL":         famInterval,
		"BOOLEAN":          famBoolean,
	},
	EnginePostgres: {
		"CHARACTER VARYING": famVarchar,
		"VARCHAR":           famVarchar,
		"CHARACTER":         famChar,
		"CHAR":              famChar,
		"TEXT":              famClob,
		"BYTEA":             famBlob,
		"SMALLINT":          famInt16,
		"INTEGER":           famInt32,
		"INT":               famInt32,
		"BIGINT":            famInt64,
		"NUMERIC":           famNumeric,
		"DECIMAL":           famNumeric,
		"REAL":              famReal,
		"DOUBLE PRECISION":  famDouble,
		"FLOAT":             famDouble,
		"BOOLEAN":           famBoolean,
		"DATE":              famDate,
		"TIME":              famTime,
		"TIMESTAMPTZ":       famTimestampTZ,
		"TIMESTAMP":         famTimestamp,
		"INTERVAL":          famInterval,
		"JSON":              famJSON,
		"JSONB":             famJSON,
		"XML":               famXML,
		"UUID":              famUUID,
	},
	EngineSQLServer: {
		"NVARCHAR":  famNVarchar,
		"NCHAR":     famNChar,
		"NTEXT":     famNClob,
		"VARCHAR":   famVarchar,
		"CHAR":      famChar,
		"TEXT":      famClob,
		"VARBINARY": famVarbinary,
		"BINARY":    famBinary,
		"IMAGE":     famBlob,
		"TINYINT":   famInt8,
		"SMALLINT":  famInt16,
		"INT":       famInt32,
		"BIGINT":    famInt64,
		"DECIMAL":   famNumeric,
		"NUMERIC":   famNumeric,
		"REAL":      famReal,
		"FLOAT":     famDouble,
		"BIT":       famBoolean,
		"DATE":      famDate,
		"TIME":      famTime,
		"DATETIMEOFFSET": famTimestampTZ,
		"DATETIME2": famTimestamp,
		"DATETIME":  famTimestamp,
		"SMALLDATETIME": famTimestamp,
		"XML":       famXML,
		"UNIQUEIDENTIFIER": famUUID,
	},
	EngineMySQL: {
		"VARCHAR":    famVarchar,
		"CHAR":       famChar,
		"TINYTEXT":   famClob,
		"MEDIUMTEXT": famClob,
		"LONGTEXT":   famClob,
		"TEXT":       famClob,
		"VARBINARY":  famVarbinary,
		"BINARY":     famBinary,
		"TINYBLOB":   famBlob,
		"MEDIUMBLOB": famBlob,
		"LONGBLOB":   famBlob,
		"BLOB":       famBlob,
		"TINYINT":    famInt8,
		"SMALLINT":   famInt16,
		"MEDIUMINT":  famInt32,
		"INT":        famInt32,
		"BIGINT":     famInt64,
		"DECIMAL":    famNumeric,
		"NUMERIC":    famNumeric,
		"FLOAT":      famReal,
		"DOUBLE":     famDouble,
		"BOOLEAN":    famBoolean,
		"BOOL":       famBoolean,
		"DATE":       famDate,
		"TIME":       famTime,
		"DATETIME":   famTimestamp,
		"TIMESTAMP":  famTimestamp,
		"JSON":       famJSON,
	},
}

// nativeOrdinals lists, per target engine, the canonical families it
// natively supports, narrowest to widest. Position in this list is the
// native_ordinal space spec.md §4.B describes.
var nativeOrdinals = map[EngineID][]typeFamily{
	EnginePostgres: {
		famBoolean, famInt8, famInt16, famInt32, famInt64, famNumeric, famReal, famDouble, famFloat,
		famChar, famVarchar, famNChar, famNVarchar, famClob, famNClob,
		famBinary, famVarbinary, famBlob,
		famDate, famTime, famTimestamp, famTimestampTZ, famInterval,
		famJSON, famXML, famUUID,
	},
	EngineOracle: {
		famBoolean, famInt8, famInt16, famInt32, famInt64, famNumeric, famReal, famFloat, famDouble,
		famChar, famNChar, famVarchar, famNVarchar, famClob, famNClob,
		famBinary, famVarbinary, famBlob,
		famDate, famTime, famTimestamp, famTimestampTZ, famInterval,
		famJSON, famXML, famUUID,
	},
	EngineSQLServer: {
		famBoolean, famInt8, famInt16, famInt32, famInt64, famNumeric, famReal, famFloat, famDouble,
		famChar, famNChar, famVarchar, famNVarchar, famClob, famNClob,
		famBinary, famVarbinary, famBlob,
		famDate, famTime, famTimestamp, famTimestampTZ,
		famXML, famUUID,
	},
	EngineMySQL: {
		famBoolean, famInt8, famInt16, famInt32, famInt64, famNumeric, famReal, famFloat, famDouble,
		famChar, famVarchar, famClob,
		famBinary, famVarbinary, famBlob,
		famDate, famTime, famTimestamp,
		famJSON,
	},
}

// referenceOrdinal is the single dialect-neutral ordering consulted when a
// source family has no native equivalent slot in the target dialect at
// all.
var referenceOrdinal = []typeFamily{
	famBoolean,
	famInt8, famInt16, famInt32, famInt64, famNumeric, famReal, famFloat, famDouble,
	famChar, famNChar, famVarchar, famNVarchar, famClob, famNClob,
	famBinary, famVarbinary, famBlob,
	famDate, famTime, famTimestamp, famTimestampTZ, famInterval,
	famUUID, famJSON, famXML, famOther,
}

// targetTemplate renders a concrete target-dialect type declaration for a
// family given the source's precision/scale/length. capped is true when the
// source length or precision exceeded the target's limit and was reduced. A
// family this target cannot render at all has no entry in targetTemplates.
type targetTemplate func(spec typeSpec) (sql string, capped bool)

var targetTemplates = map[EngineID]map[typeFamily]targetTemplate{
	EnginePostgres: {
		famBoolean: fixed("BOOLEAN"),
		famInt8:    fixed("SMALLINT"),
		famInt16:   fixed("SMALLINT"),
		famInt32:   fixed("INTEGER"),
		famInt64:   fixed("BIGINT"),
		famNumeric: numericTpl("NUMERIC", 1000, 1000),
		famReal:    fixed("REAL"),
		famFloat:   fixed("DOUBLE PRECISION"),
		famDouble:  fixed("DOUBLE PRECISION"),
		famChar:    lengthTpl("CHAR", 10_485_760),
		famNChar:   lengthTpl("CHAR", 10_485_760),
		famVarchar: lengthTpl("VARCHAR", 10_485_760),
		famNVarchar: lengthTpl("VARCHAR", 10_485_760),
		famClob:    fixed("TEXT"),
		famNClob:   fixed("TEXT"),
		famBinary:  fixed("BYTEA"),
		famVarbinary: fixed("BYTEA"),
		famBlob:    fixed("BYTEA"),
		famDate:    fixed("DATE"),
		famTime:    fixed("TIME"),
		famTimestamp: fixed("TIMESTAMP"),
		famTimestampTZ: fixed("TIMESTAMPTZ"),
		famInterval: fixed("INTERVAL"),
		famJSON:    fixed("JSONB"),
		famXML:     fixed("XML"),
		famUUID:    fixed("UUID"),
	},
	EngineOracle: {
		famBoolean:  fixed("NUMBER(1)"),
		famInt8:     fixed("NUMBER(3)"),
		famInt16:    fixed("NUMBER(5)"),
		famInt32:    fixed("NUMBER(10)"),
		famInt64:    fixed("NUMBER(19)"),
		famNumeric:  numericTpl("NUMBER", 38, 127),
		famReal:     fixed("BINARY_FLOAT"),
		famFloat:    fixed("FLOAT"),
		famDouble:   fixed("BINARY_DOUBLE"),
		famChar:     lengthTpl("CHAR", 2000),
		famNChar:    lengthTpl("NCHAR", 1000),
		famVarchar:  lengthTpl("VARCHAR2", 4000),
		famNVarchar: lengthTpl("NVARCHAR2", 2000),
		famClob:     fixed("CLOB"),
		famNClob:    fixed("NCLOB"),
		famBinary:   fixed("RAW(2000)"),
		famVarbinary: fixed("RAW(2000)"),
		famBlob:     fixed("BLOB"),
		famDate:     fixed("DATE"),
		famTime:     fixed("DATE"),
		famTimestamp: fixed("TIMESTAMP"),
		famTimestampTZ: fixed("TIMESTAMP WITH TIME ZONE"),
		famInterval: fixed("INTERVAL DAY TO SECOND"),
		famJSON:     fixed("CLOB"),
		famXML:      fixed("XMLTYPE"),
		famUUID:     fixed("RAW(16)"),
	},
	EngineSQLServer: {
		famBoolean:  fixed("BIT"),
		famInt8:     fixed("TINYINT"),
		famInt16:    fixed("SMALLINT"),
		famInt32:    fixed("INT"),
		famInt64:    fixed("BIGINT"),
		famNumeric:  numericTpl("DECIMAL", 38, 38),
		famReal:     fixed("REAL"),
		famFloat:    fixed("FLOAT"),
		famDouble:   fixed("FLOAT"),
		famChar:     lengthTpl("CHAR", 8000),
		famNChar:    lengthTpl("NCHAR", 4000),
		famVarchar:  lengthTpl("VARCHAR", 8000),
		famNVarchar: lengthTpl("NVARCHAR", 4000),
		famClob:     fixed("VARCHAR(MAX)"),
		famNClob:    fixed("NVARCHAR(MAX)"),
		famBinary:   fixed("VARBINARY(8000)"),
		famVarbinary: fixed("VARBINARY(8000)"),
		famBlob:     fixed("VARBINARY(MAX)"),
		famDate:     fixed("DATE"),
		famTime:     fixed("TIME"),
		famTimestamp: fixed("DATETIME2"),
		famTimestampTZ: fixed("DATETIMEOFFSET"),
		famXML:      fixed("XML"),
		famUUID:     fixed("UNIQUEIDENTIFIER"),
	},
	EngineMySQL: {
		famBoolean: fixed("TINYINT(1)"),
		famInt8:    fixed("TINYINT"),
		famInt16:   fixed("SMALLINT"),
		famInt32:   fixed("INT"),
		famInt64:   fixed("BIGINT"),
		famNumeric: numericTpl("DECIMAL", 65, 30),
		famReal:    fixed("FLOAT"),
		famFloat:   fixed("FLOAT"),
		famDouble:  fixed("DOUBLE"),
		famChar:    lengthTpl("CHAR", 255),
		famVarchar: lengthTpl("VARCHAR", 65_535),
		famClob:    fixed("LONGTEXT"),
		famBinary:  fixed("VARBINARY(255)"),
		famVarbinary: fixed("VARBINARY(65535)"),
		famBlob:    fixed("LONGBLOB"),
		famDate:    fixed("DATE"),
		famTime:    fixed("TIME"),
		famTimestamp: fixed("DATETIME"),
		famJSON:    fixed("JSON"),
	},
}

func fixed(sql string) targetTemplate {
	return func(typeSpec) (string, bool) { return sql, false }
}

func lengthTpl(name string, cap int) targetTemplate {
	return func(s typeSpec) (string, bool) {
		n := s.length
		if n <= 0 {
			n = 1
		}
		capped := n > cap
		if capped {
			n = cap
		}
		return name + "(" + strconv.Itoa(n) + ")", capped
	}
}

func numericTpl(name string, maxPrecision, _ int) targetTemplate {
	return func(s typeSpec) (string, bool) {
		p, sc := s.precision, s.scale
		if p <= 0 {
			p = 18
		}
		capped := p > maxPrecision
		if capped {
			p = maxPrecision
		}
		if sc > p {
			sc = p
		}
		return name + "(" + strconv.Itoa(p) + "," + strconv.Itoa(sc) + ")", capped
	}
}

func ordinalIndex(list []typeFamily, f typeFamily) (int, bool) {
	for i, x := range list {
		if x == f {
			return i, true
		}
	}
	return 0, false
}

// MigrateType translates a source column's declared type into an
// equivalent declaration on the target dialect, per spec.md §4.B steps
// 1-4. Errors are appended to errs; the returned string is still the best
// effort the engine could produce (empty only for KindTypeUnsupported).
func MigrateType(errs *[]MigrationError, sourceEngine, targetEngine EngineID,
	columnName, sourceType string, overrides map[string]string) string {

	if overrides != nil {
		if ov, ok := overrides[strings.ToLower(columnName)]; ok {
			return ov
		}
	}

	spec := classifySourceType(sourceEngine, sourceType)
	templates := targetTemplates[targetEngine]

	if tpl, ok := templates[spec.family]; ok {
		sql, capped := tpl(spec)
		if capped {
			*errs = append(*errs, newError(KindTypePrecisionLoss, CodeOutOfRange, sourceType,
				"target family caps length/precision lower than the source declaration", columnName))
		}
		return sql
	}

	if idx, ok := ordinalIndex(nativeOrdinals[targetEngine], spec.family); ok {
		for _, f := range nativeOrdinals[targetEngine][idx+1:] {
			if tpl, ok := templates[f]; ok {
				sql, _ := tpl(typeSpec{family: f, precision: spec.precision, scale: spec.scale, length: spec.length})
				return sql
			}
		}
	}

	if idx, ok := ordinalIndex(referenceOrdinal, spec.family); ok {
		for _, f := range referenceOrdinal[idx+1:] {
			if tpl, ok := templates[f]; ok {
				sql, _ := tpl(typeSpec{family: f, precision: spec.precision, scale: spec.scale, length: spec.length})
				return sql
			}
		}
	}

	*errs = append(*errs, newError(KindTypeUnsupported, CodeInvalidValue, sourceType,
		"no equivalent target type family could be found", columnName))
	return ""
}

// IsLargeBinary reports whether sourceType names a large binary/character
// family (BLOB/CLOB/RAW/BYTEA/IMAGE/TEXT-as-LOB), independent of engine.
func IsLargeBinary(sourceType string) bool {
	upper := strings.ToUpper(sourceType)
	for _, kw := range []string{"BLOB", "CLOB", "BYTEA", "IMAGE", "RAW", "LONGTEXT", "MEDIUMTEXT", "NTEXT"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	// Plain TEXT without a bounded length is treated as a LOB family too,
	// matching the source engines where TEXT has no declared length.
	if strings.HasPrefix(upper, "TEXT") {
		return true
	}
	return false
}
