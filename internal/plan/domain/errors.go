package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateIdentifier = errors.New("duplicate_plan_identifier")
	ErrPlanNotFound        = errors.New("plan_not_found")
)

type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ConfigurationError carries every rule a plan declaration broke.
type ConfigurationError struct {
	Key        string
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid configuration for plan %q: %s", e.Key, strings.Join(parts, "; "))
}

// Has reports whether a violation was recorded for field.
func (e *ConfigurationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}
