package cases

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// jobIDRe matches the base job ID, ignoring any array suffix ("423_7").
var jobIDRe = regexp.MustCompile(`^(\d+)`)

// ParseJobID normalizes a reported job identifier to its integer base ID.
// Detectors may send job IDs as numbers or as strings with a job array
// suffix; "423", "423_7" and 423 all normalize to 423.
func ParseJobID(field string, v interface{}) (int64, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, &SchemaViolationError{Field: field, Reason: err.Error()}
		}
		return n, nil
	case string:
		m := jobIDRe.FindStringSubmatch(val)
		if m == nil {
			return 0, &SchemaViolationError{
				Field:  field,
				Reason: fmt.Sprintf("could not parse job ID %q", val),
			}
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, &SchemaViolationError{Field: field, Reason: err.Error()}
		}
		return n, nil
	default:
		return 0, &SchemaViolationError{
			Field:  field,
			Reason: fmt.Sprintf("unexpected type %T", v),
		}
	}
}
