package migration

import (
	"fmt"
	"strings"
	"unicode"
)

// ErrorKind names one of the structured error conditions this package can
// raise. Kept as a string enum so error kinds serialize readably in logs
// and tests.
type ErrorKind string

const (
	KindEngineUnknown        ErrorKind = "EngineUnknown"
	KindEnginePairInvalid    ErrorKind = "EnginePairInvalid"
	KindPairUncertified      ErrorKind = "PairUncertified"
	KindOutOfRange           ErrorKind = "OutOfRange"
	KindMutuallyExclusive    ErrorKind = "MutuallyExclusive"
	KindStepIncoherent       ErrorKind = "StepIncoherent"
	KindSchemaNotFound       ErrorKind = "SchemaNotFound"
	KindTableNotFound        ErrorKind = "TableNotFound"
	KindSchemaCreateFailed   ErrorKind = "SchemaCreateFailed"
	KindDDLFailed            ErrorKind = "DDLFailed"
	KindTypeUnknown          ErrorKind = "TypeUnknown"
	KindTypeUnsupported      ErrorKind = "TypeUnsupported"
	KindTypePrecisionLoss    ErrorKind = "TypePrecisionLoss"
	KindConnectionUnavailable ErrorKind = "ConnectionUnavailable"
	KindCopyFailed           ErrorKind = "CopyFailed"
	KindUnexpected           ErrorKind = "Unexpected"
)

// Error codes reused across kinds, per the host's error-format routine.
const (
	CodeGeneric     = 101
	CodeUnexpected  = 104
	CodeNotFound    = 119
	CodeConflict    = 126
	CodeInvalidValue = 142
	CodeOutOfRange  = 151
)

// MigrationError is a single structured error record accumulated by the
// Validator, Pipeline, Bulk Copy Engine and Orchestrator. Components accept
// an accumulator and append to it; they never raise across component
// boundaries.
type MigrationError struct {
	Kind      ErrorKind
	Code      int
	Value     any
	Detail    string
	Attribute string
}

func (e MigrationError) Error() string {
	return FormatError(e)
}

// FormatError renders a MigrationError the way the host's format routine
// would: "<code>: <detail>", followed by " (<value>)" when Value is set and
// " [@<attribute>]" when Attribute is set.
func FormatError(e MigrationError) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: %v", e.Code, e.Detail)
	if e.Value != nil {
		fmt.Fprintf(&sb, " (%v)", e.Value)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&sb, " [@%s]", e.Attribute)
	}
	return sb.String()
}

func newError(kind ErrorKind, code int, value any, detail, attribute string) MigrationError {
	return MigrationError{Kind: kind, Code: code, Value: value, Detail: detail, Attribute: attribute}
}

// Sanitize strips control characters from a driver-originated message
// before it is wrapped into a MigrationError, mirroring the host's
// str_sanitize helper.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// wrapUnexpected reduces a caught driver error to a sanitized Unexpected
// MigrationError, unless a more specific kind already applies.
func wrapUnexpected(err error, attribute string) MigrationError {
	return newError(KindUnexpected, CodeUnexpected, nil, Sanitize(err.Error()), attribute)
}

// hasFatal reports whether errs contains any of the given kinds.
func hasFatal(errs []MigrationError, kinds ...ErrorKind) bool {
	for _, e := range errs {
		for _, k := range kinds {
			if e.Kind == k {
				return true
			}
		}
	}
	return false
}
