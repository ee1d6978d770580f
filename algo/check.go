// SPDX-License-Identifier: MIT

package algo

import "github.com/katalvlaran/algokit/matrix"

// CheckData validates an observations×features input table. features <= 0
// accepts any positive column count. Returns false if a record was appended.
func CheckData(m matrix.Matrix, name string, features int, errs *ErrorCollection) bool {
	if !matrix.IsAllocated(m) {
		errs.AddArgument(ErrorNullInputNumericTable, name)
		return false
	}
	ok := true
	if m.Rows() <= 0 {
		errs.AddArgument(ErrorIncorrectNumberOfObservations, name)
		ok = false
	}
	if m.Cols() <= 0 || (features > 0 && m.Cols() != features) {
		errs.AddArgument(ErrorIncorrectNumberOfFeatures, name)
		ok = false
	}

	return ok
}

// CheckInputTable validates an input table of fixed shape. A non-positive
// rows or cols accepts any size in that dimension.
func CheckInputTable(m matrix.Matrix, name string, rows, cols int, errs *ErrorCollection) bool {
	if !matrix.IsAllocated(m) {
		errs.AddArgument(ErrorNullInputNumericTable, name)
		return false
	}
	ok := true
	if rows > 0 && m.Rows() != rows {
		errs.AddArgument(ErrorIncorrectNumberOfRows, name)
		ok = false
	}
	if cols > 0 && m.Cols() != cols {
		errs.AddArgument(ErrorIncorrectNumberOfColumns, name)
		ok = false
	}

	return ok
}

// CheckOutputTable validates a preallocated output table of fixed shape.
func CheckOutputTable(m matrix.Matrix, name string, rows, cols int, errs *ErrorCollection) bool {
	if !matrix.IsAllocated(m) {
		errs.AddArgument(ErrorNullOutputNumericTable, name)
		return false
	}
	if (rows > 0 && m.Rows() != rows) || (cols > 0 && m.Cols() != cols) {
		errs.AddArgument(ErrorIncorrectSizeOfOutputNumericTable, name)
		return false
	}

	return true
}

// Narrow type-asserts a generic argument to the concrete type an algorithm
// container expects, appending ErrorIncorrectTypeOfArgument on mismatch.
func Narrow[T any](v any, name string, errs *ErrorCollection) (T, bool) {
	t, ok := v.(T)
	if !ok {
		errs.AddArgument(ErrorIncorrectTypeOfArgument, name)
	}

	return t, ok
}
