package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/passman/internal/ir"
)

// marshalAttrs converts operation attributes to canonical JSON TEXT.
func marshalAttrs(attrs map[string]string) (string, error) {
	obj := make(map[string]any, len(attrs))
	for k, v := range attrs {
		obj[k] = v
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal attrs: %w", err)
	}
	return string(data), nil
}

func unmarshalAttrs(data string) (map[string]string, error) {
	attrs := map[string]string{}
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attrs: %w", err)
	}
	return attrs, nil
}
