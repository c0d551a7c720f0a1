package cases

import (
	"encoding/json"
	"fmt"
)

// Resource values accepted in reports.
const (
	ResourceCPU = "cpu"
	ResourceGPU = "gpu"
)

func entryString(entry map[string]interface{}, field string) (string, error) {
	v, ok := entry[field]
	if !ok {
		return "", &SchemaViolationError{Field: field}
	}
	s, ok := v.(string)
	if !ok {
		return "", &SchemaViolationError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func entryNumber(entry map[string]interface{}, field string) (float64, error) {
	v, ok := entry[field]
	if !ok {
		return 0, &SchemaViolationError{Field: field}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &SchemaViolationError{Field: field, Reason: err.Error()}
		}
		return f, nil
	default:
		return 0, &SchemaViolationError{Field: field, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
}

func entryResource(entry map[string]interface{}) (string, error) {
	s, err := entryString(entry, "resource")
	if err != nil {
		return "", err
	}
	if s != ResourceCPU && s != ResourceGPU {
		return "", &SchemaViolationError{Field: "resource", Reason: fmt.Sprintf("invalid resource type %q", s)}
	}
	return s, nil
}

// entrySummary re-stringifies the entry's opaque summary blob. The engine
// stores it verbatim and never introspects it. A missing or null summary is
// valid.
func entrySummary(entry map[string]interface{}) (*string, error) {
	v, ok := entry["summary"]
	if !ok || v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SchemaViolationError{Field: "summary", Reason: err.Error()}
	}
	s := string(data)
	return &s, nil
}

// summarizeCommon is the report summary shared by the shipped case types.
func summarizeCommon(touched []Touched) string {
	var claimed, newbs, existing int
	for _, t := range touched {
		if t.Claimant != nil {
			claimed++
		}
		if t.Ticks > 1 {
			existing++
		} else {
			newbs++
		}
	}
	return fmt.Sprintf("There are %d cases (%d new and %d existing).  %d are claimed.",
		len(touched), newbs, existing, claimed)
}
