package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Validated record→value conversion. Unexpected shapes are rejected with an
// error instead of being coerced.

func rawValue(rec *neo4j.Record, key string) (any, error) {
	if rec == nil {
		return nil, fmt.Errorf("graph: nil record reading %q", key)
	}
	v, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("graph: record missing field %q", key)
	}
	return v, nil
}

func stringValue(rec *neo4j.Record, key string) (string, error) {
	v, err := rawValue(rec, key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("graph: field %q: expected string, got %T", key, v)
	}
	return s, nil
}

func intValue(rec *neo4j.Record, key string) (int, error) {
	v, err := rawValue(rec, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("graph: field %q: expected integer, got %T", key, v)
	}
}

func floatValue(rec *neo4j.Record, key string) (float64, error) {
	v, err := rawValue(rec, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("graph: field %q: expected float, got %T", key, v)
	}
}

func stringSliceValue(rec *neo4j.Record, key string) ([]string, error) {
	v, err := rawValue(rec, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("graph: field %q: expected list, got %T", key, v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("graph: field %q[%d]: expected string, got %T", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func conceptWeights(rec *neo4j.Record, key string) ([]ConceptWeight, error) {
	v, err := rawValue(rec, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("graph: field %q: expected list, got %T", key, v)
	}
	out := make([]ConceptWeight, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("graph: field %q[%d]: expected map, got %T", key, i, item)
		}
		name, ok := m["name"].(string)
		if !ok {
			return nil, fmt.Errorf("graph: field %q[%d].name: expected string, got %T", key, i, m["name"])
		}
		var score float64
		switch t := m["score"].(type) {
		case float64:
			score = t
		case int64:
			score = float64(t)
		case nil:
			score = 0
		default:
			return nil, fmt.Errorf("graph: field %q[%d].score: expected number, got %T", key, i, m["score"])
		}
		out = append(out, ConceptWeight{Name: name, MaxSalience: score})
	}
	return out, nil
}
