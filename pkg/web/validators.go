package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gt returns a ParamValidator that checks if the argument is greater than the value captured in the closure.
func gt(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue > closedValue
	})
}

// lte returns a ParamValidator that checks if the argument is less than or equal to the value captured in the closure.
func lte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue <= closedValue
	})
}

// ParseID extracts a positive integer id from the {id} path parameter.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	return parseValidate(w, logger, "id", r.PathValue("id"), gt(0))
}

// ParsePathRange extracts the path parameter key and checks that it lies in [minValue, maxValue].
func ParsePathRange(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string, minValue, maxValue int64) (int64, bool) {
	return parseValidate(w, logger, key, r.PathValue(key), gt(minValue-1), lte(maxValue))
}

func parseValidate(w http.ResponseWriter, logger *slog.Logger, key, value string, validators ...ParamValidator) (int64, bool) {
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s parameter is required", key))
		return 0, false
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", key, value))
		return 0, false
	}
	for _, valid := range validators {
		if !valid(intValue) {
			RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", key, value))
			return 0, false
		}
	}
	return intValue, true
}
