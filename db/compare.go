package db

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nickyhof/TabDB/sql"
)

var numericPattern = regexp.MustCompile(`^[+-]?[0-9]*\.?[0-9]+$`)

func isKeywordCell(cell string) bool {
	return cell == "TRUE" || cell == "FALSE" || cell == "NULL"
}

// canCompare reports whether saved and value may be compared with op at all.
// Ordering operators refuse keywords and mixed string/number operands; LIKE
// only accepts string literals.
func canCompare(saved string, op sql.WhereOperator, value sql.Value) bool {
	if op.Ordering() && (isKeywordCell(saved) || value.IsKeyword()) {
		return false
	}
	if op == sql.LikeOperator && !value.IsString() {
		return false
	}
	if op.Ordering() && numericPattern.MatchString(saved) == value.IsString() {
		return false
	}
	return true
}

// matches applies op to a stored cell and a literal.
func matches(saved string, op sql.WhereOperator, value sql.Value) bool {
	if !canCompare(saved, op, value) {
		return false
	}

	text := value.Text()
	if !value.IsString() {
		left, leftErr := strconv.ParseFloat(saved, 64)
		right, rightErr := strconv.ParseFloat(text, 64)
		if leftErr == nil && rightErr == nil {
			return compareNumbers(left, op, right)
		}
	}

	if op == sql.LikeOperator {
		return strings.Contains(saved, text)
	}
	return compareNumbers(float64(strings.Compare(saved, text)), op, 0)
}

func compareNumbers(left float64, op sql.WhereOperator, right float64) bool {
	switch op {
	case sql.EqualsOperator:
		return left == right
	case sql.NotEqualsOperator:
		return left != right
	case sql.LessThanOperator:
		return left < right
	case sql.GreaterThanOperator:
		return left > right
	case sql.LessThanOrEqualOperator:
		return left <= right
	case sql.GreaterThanOrEqualOperator:
		return left >= right
	}
	return false
}
