package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"pgbuild/pkg/actions"
)

// ValidationError carries every failed requirement of an action so they can
// be reported together before any request is attempted.
type ValidationError struct {
	Validations []actions.Validation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Validations))
	for _, v := range e.Validations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Action, v.Message))
	}
	return "validation errors occurred: " + strings.Join(msgs, "; ")
}

func isJSON(s string) bool {
	return json.Valid([]byte(strings.TrimSpace(s)))
}
