// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies an ErrorID.
type ErrorKind int

const (
	// KindStructural covers wrong counts, nil or mis-shaped arguments.
	KindStructural ErrorKind = iota
	// KindResource covers allocation failures.
	KindResource
	// KindNumeric covers degenerate data (zero variance, non-convergence).
	KindNumeric
	// KindProtocol covers misuse of the lifecycle (missing keys, empty collections).
	KindProtocol
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindResource:
		return "resource"
	case KindNumeric:
		return "numeric"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ErrorID identifies a failure. ErrorID implements error so that
// errors.Is(err, ErrorNullInputNumericTable) works on any error returned by
// an algorithm.
type ErrorID int

const (
	ErrorIncorrectNumberOfInputNumericTables ErrorID = iota + 1
	ErrorNullInputNumericTable
	ErrorIncorrectNumberOfObservations
	ErrorIncorrectNumberOfFeatures
	ErrorIncorrectNumberOfColumns
	ErrorIncorrectNumberOfRows
	ErrorIncorrectSizeOfInputNumericTable
	ErrorNullParameter
	ErrorIncorrectParameter
	ErrorNullPartialResult
	ErrorNullResult
	ErrorNullOutputNumericTable
	ErrorIncorrectSizeOfOutputNumericTable
	ErrorIncorrectTypeOfArgument
	ErrorUnsupportedMethod
	ErrorKernelNotRegistered
	ErrorMemoryAllocationFailed
	ErrorEmptyInputCollection
	ErrorMissingKey
	ErrorIndexOutOfRange
	ErrorAlgorithmFaulted
	ErrorNonFiniteValue
	ErrorZeroVariance
	ErrorInsufficientObservations
	ErrorEigenDecompositionFailed
	ErrorIncorrectClassLabels
	ErrorBlockAccess
)

type errorInfo struct {
	kind ErrorKind
	msg  string
}

var errorCatalog = map[ErrorID]errorInfo{
	ErrorIncorrectNumberOfInputNumericTables: {KindStructural, "incorrect number of input numeric tables"},
	ErrorNullInputNumericTable:               {KindStructural, "null input numeric table"},
	ErrorIncorrectNumberOfObservations:       {KindStructural, "incorrect number of observations"},
	ErrorIncorrectNumberOfFeatures:           {KindStructural, "incorrect number of features"},
	ErrorIncorrectNumberOfColumns:            {KindStructural, "incorrect number of columns"},
	ErrorIncorrectNumberOfRows:               {KindStructural, "incorrect number of rows"},
	ErrorIncorrectSizeOfInputNumericTable:    {KindStructural, "incorrect size of input numeric table"},
	ErrorNullParameter:                       {KindStructural, "null parameter"},
	ErrorIncorrectParameter:                  {KindStructural, "incorrect parameter"},
	ErrorNullPartialResult:                   {KindStructural, "null partial result"},
	ErrorNullResult:                          {KindStructural, "null result"},
	ErrorNullOutputNumericTable:              {KindStructural, "null output numeric table"},
	ErrorIncorrectSizeOfOutputNumericTable:   {KindStructural, "incorrect size of output numeric table"},
	ErrorIncorrectTypeOfArgument:             {KindStructural, "incorrect type of argument"},
	ErrorUnsupportedMethod:                   {KindStructural, "unsupported computation method"},
	ErrorKernelNotRegistered:                 {KindStructural, "no kernel registered"},
	ErrorMemoryAllocationFailed:              {KindResource, "memory allocation failed"},
	ErrorEmptyInputCollection:                {KindProtocol, "empty input collection"},
	ErrorMissingKey:                          {KindProtocol, "missing key"},
	ErrorIndexOutOfRange:                     {KindProtocol, "index out of range"},
	ErrorAlgorithmFaulted:                    {KindProtocol, "algorithm is in faulted state"},
	ErrorNonFiniteValue:                      {KindNumeric, "NaN or Inf encountered"},
	ErrorZeroVariance:                        {KindNumeric, "zero variance feature"},
	ErrorInsufficientObservations:            {KindNumeric, "too few observations"},
	ErrorEigenDecompositionFailed:            {KindNumeric, "eigen decomposition did not converge"},
	ErrorIncorrectClassLabels:                {KindStructural, "incorrect class labels"},
	ErrorBlockAccess:                         {KindStructural, "numeric table block access failed"},
}

// Kind returns the classification of id.
func (id ErrorID) Kind() ErrorKind {
	if info, ok := errorCatalog[id]; ok {
		return info.kind
	}

	return KindStructural
}

// Error implements error.
func (id ErrorID) Error() string {
	if info, ok := errorCatalog[id]; ok {
		return "algo: " + info.msg
	}

	return fmt.Sprintf("algo: error %d", int(id))
}

// Error is one record of an ErrorCollection.
type Error struct {
	ID ErrorID
	// Argument names the offending argument or parameter ("data", "nClusters").
	Argument string
	// Cause is an optional lower-level error (allocator, matrix package).
	Cause error
	// Timestamp is the time the record was appended.
	Timestamp time.Time
}

// Kind returns the record's classification.
func (e *Error) Kind() ErrorKind { return e.ID.Kind() }

// Error implements error.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.ID.Error())
	if e.Argument != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Argument)
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap exposes the ID and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.ID}
	}

	return []error{e.ID, e.Cause}
}

// ErrorCollection is an append-only list of error records shared by an
// algorithm, its container and its kernel. An empty collection is the only
// success signal. It is not safe for concurrent use; one algorithm runs on
// one goroutine.
type ErrorCollection struct {
	records []*Error
}

// NewErrorCollection returns an empty collection.
func NewErrorCollection() *ErrorCollection { return &ErrorCollection{} }

// Add appends a record for id.
func (c *ErrorCollection) Add(id ErrorID) { c.append(&Error{ID: id}) }

// AddArgument appends a record for id naming the offending argument.
func (c *ErrorCollection) AddArgument(id ErrorID, argument string) {
	c.append(&Error{ID: id, Argument: argument})
}

// AddCause appends a record for id carrying a lower-level cause.
func (c *ErrorCollection) AddCause(id ErrorID, argument string, cause error) {
	c.append(&Error{ID: id, Argument: argument, Cause: cause})
}

// Append adopts every record of other, in order.
func (c *ErrorCollection) Append(other *ErrorCollection) {
	if other == nil {
		return
	}
	c.records = append(c.records, other.records...)
}

func (c *ErrorCollection) append(e *Error) {
	e.Timestamp = time.Now()
	c.records = append(c.records, e)
}

// Size returns the number of records.
func (c *ErrorCollection) Size() int { return len(c.records) }

// IsEmpty reports whether no error has been recorded.
func (c *ErrorCollection) IsEmpty() bool { return len(c.records) == 0 }

// At returns record i.
func (c *ErrorCollection) At(i int) (*Error, bool) {
	if i < 0 || i >= len(c.records) {
		return nil, false
	}

	return c.records[i], true
}

// Records returns a copy of the record list.
func (c *ErrorCollection) Records() []*Error {
	out := make([]*Error, len(c.records))
	copy(out, c.records)

	return out
}

// Has reports whether a record with id exists.
func (c *ErrorCollection) Has(id ErrorID) bool {
	for _, e := range c.records {
		if e.ID == id {
			return true
		}
	}

	return false
}

// Err returns nil for an empty collection and a *CollectionError otherwise.
func (c *ErrorCollection) Err() error {
	if c.IsEmpty() {
		return nil
	}

	return &CollectionError{Records: c.Records()}
}

// CollectionError is the error form of a non-empty ErrorCollection.
type CollectionError struct {
	Records []*Error
}

// Error joins the record messages with "; ".
func (e *CollectionError) Error() string {
	msgs := make([]string, len(e.Records))
	for i, r := range e.Records {
		msgs[i] = r.Error()
	}

	return strings.Join(msgs, "; ")
}

// Unwrap exposes every record to errors.Is / errors.As.
func (e *CollectionError) Unwrap() []error {
	out := make([]error, len(e.Records))
	for i, r := range e.Records {
		out[i] = r
	}

	return out
}
