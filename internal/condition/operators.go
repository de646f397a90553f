package condition

import (
	"fmt"
	"math"
)

// Operator represents a comparison operator.
type Operator string

const (
	OpEq  Operator = "=="
	OpNeq Operator = "!="
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLt  Operator = "<"
	OpLte Operator = "<="
)

// floatTolerance is the tolerance used for float (in)equality.
const floatTolerance = 1e-8

// normalize maps the zero Operator to OpEq.
func (op Operator) normalize() Operator {
	if op == "" {
		return OpEq
	}
	return op
}

// Valid reports whether op is a known operator. The zero value counts as OpEq.
func (op Operator) Valid() bool {
	switch op.normalize() {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

func compareInt(op Operator, left, right int) (bool, error) {
	switch op.normalize() {
	case OpEq:
		return left == right, nil
	case OpNeq:
		return left != right, nil
	}
	return compareOrdered(op, left, right)
}

func compareFloat(op Operator, left, right float64) (bool, error) {
	switch op.normalize() {
	case OpEq:
		return nearlyEqual(left, right), nil
	case OpNeq:
		return !nearlyEqual(left, right), nil
	}
	return compareOrdered(op, left, right)
}

func compareOrdered[T int | float64](op Operator, left, right T) (bool, error) {
	switch op {
	case OpGt:
		return left > right, nil
	case OpGte:
		return left >= right, nil
	case OpLt:
		return left < right, nil
	case OpLte:
		return left <= right, nil
	}
	return false, fmt.Errorf("unknown operator: %s", op)
}

// compareName only supports equality operators.
func compareName(op Operator, left, right string) (bool, error) {
	switch op.normalize() {
	case OpEq:
		return left == right, nil
	case OpNeq:
		return left != right, nil
	}
	return false, fmt.Errorf("operator %s is not supported for names", op)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
