package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorKind represents standard spreadsheet-formula error codes, the
// display text a cell shows when a computation fails (spec.md §7).
type ErrorKind string

const (
	ErrKindNull     ErrorKind = "#NULL!"  // no cells in common between ranges
	ErrKindDiv0     ErrorKind = "#DIV/0!" // division by zero
	ErrKindValue    ErrorKind = "#VALUE!" // wrong type of argument or operand
	ErrKindRef      ErrorKind = "#REF!"   // invalid cell reference
	ErrKindName     ErrorKind = "#NAME?"  // unrecognized function or accessor
	ErrKindNum      ErrorKind = "#NUM!"   // number too large or small to represent
	ErrKindNA       ErrorKind = "#N/A"    // not enough arguments, or lookup miss
	ErrKindCircular ErrorKind = "#CIRCULAR!"
	ErrKindSpill    ErrorKind = "#SPILL!"
	ErrKindOther    ErrorKind = "#ERROR!"
)

// kindMessages supplies the default detail text for a kind when the
// caller does not provide one, mirroring the teacher's ErrorMapper.
var kindMessages = map[ErrorKind]string{
	ErrKindNull:     "no cells in common between ranges",
	ErrKindDiv0:     "division by zero",
	ErrKindValue:    "wrong type of argument or operand",
	ErrKindRef:      "invalid cell reference",
	ErrKindName:     "unrecognized name",
	ErrKindNum:      "number too large or small to represent",
	ErrKindNA:       "value not available",
	ErrKindCircular: "circular reference detected",
	ErrKindSpill:    "spill range blocked by a non-empty neighbor",
	ErrKindOther:    "evaluation error",
}

// newError builds an ErrorValue, falling back to the kind's default
// message when detail is empty.
func newError(kind ErrorKind, detail string) *ErrorValue {
	if detail == "" {
		detail = kindMessages[kind]
	}
	return NewErrorValue(kind, detail)
}

// AppErrorCode is the engine-level (not formula-level) failure taxonomy:
// failures of the host API itself rather than of a formula it evaluated,
// reported to callers of Workbook's Core API (SPEC_FULL.md §7/§4.10's
// companion "engine error" track, kept distinct from ErrorKind the same
// way a service's transport status code is kept distinct from an
// application-domain error payload).
type AppErrorCode int

const (
	AppErrCodeUnknown AppErrorCode = iota
	AppErrCodeNotFound
	AppErrCodeInvalidArgument
	AppErrCodeFailedPrecondition
	AppErrCodeCanceled
	AppErrCodeInternal
)

// AppError is a correlation-tagged engine failure: a caller can log the
// ID once and match it against structured log output.
type AppError struct {
	Code    AppErrorCode
	Message string
	ID      uuid.UUID
	Cause   error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("pycellsheet[%s]: %s", e.ID, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// NewAppError builds an AppError with a fresh correlation ID.
func NewAppError(code AppErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, ID: uuid.New(), Cause: cause}
}

// CircularRefError is raised by DependencyGraph.AddEdge when inserting
// an edge would close a cycle (spec.md invariant I2). Path carries the
// full cycle in traversal order, from the first re-encountered cell
// back to itself (spec.md §4.5/§7), so Error()'s detail can render the
// whole loop rather than just the rejected edge's two endpoints.
type CircularRefError struct {
	From CellAddress
	To   CellAddress
	Path []CellAddress
}

func (e *CircularRefError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("pycellsheet: adding dependency %s -> %s would close a cycle", e.From, e.To)
	}
	labels := make([]string, len(e.Path))
	for i, addr := range e.Path {
		labels[i] = LabelOf(addr.Row, addr.Col)
	}
	return fmt.Sprintf("pycellsheet: circular reference: %s", strings.Join(labels, " -> "))
}

// SpillConflictError is raised when a producer's spill block overlaps a
// non-empty neighbor cell (spec.md §4.9).
type SpillConflictError struct {
	Producer CellAddress
	Blocker  CellAddress
}

func (e *SpillConflictError) Error() string {
	return fmt.Sprintf("pycellsheet: spill from %s blocked by non-empty cell %s", e.Producer, e.Blocker)
}
