package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// ParameterSet is a single unit of input dispatched to a worker.
type ParameterSet map[string]interface{}

// Assignment ties a parameter set to the slot it was bound at. Slots are
// indexes into the bound list and identify a set for accounting even when
// several sets are structurally equal.
type Assignment struct {
	Slot       int
	Parameters ParameterSet
}

// Equal reports whether two parameter sets have the same canonical JSON form.
func Equal(a, b ParameterSet) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	right, err := json.Marshal(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(left, right)
}

// Clone returns a deep copy of the parameter set.
func (p ParameterSet) Clone() ParameterSet {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		ret := make(ParameterSet, len(p))
		for k, v := range p {
			ret[k] = v
		}
		return ret
	}
	ret := ParameterSet{}
	_ = json.Unmarshal(data, &ret)
	return ret
}

// String returns the canonical JSON form.
func (p ParameterSet) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%v", map[string]interface{}(p))
	}
	return string(data)
}

// NewParameterSets converts a decoded list (for example []interface{} from a
// JSON or YAML document) into parameter sets. Every element has to be an
// object.
func NewParameterSets(list interface{}) ([]ParameterSet, error) {
	switch actual := list.(type) {
	case []ParameterSet:
		return actual, nil
	case []map[string]interface{}:
		ret := make([]ParameterSet, len(actual))
		for i, item := range actual {
			ret[i] = item
		}
		return ret, nil
	}
	value := reflect.ValueOf(list)
	if !value.IsValid() || (value.Kind() != reflect.Slice && value.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w, got %T", ErrNotList, list)
	}
	ret := make([]ParameterSet, 0, value.Len())
	for i := 0; i < value.Len(); i++ {
		item, err := toParameterSet(value.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("invalid parameter set at %d: %w", i, err)
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func toParameterSet(item interface{}) (ParameterSet, error) {
	switch actual := item.(type) {
	case ParameterSet:
		return actual, nil
	case map[string]interface{}:
		return actual, nil
	case map[interface{}]interface{}:
		ret := make(ParameterSet, len(actual))
		for k, v := range actual {
			ret[fmt.Sprintf("%v", k)] = v
		}
		return ret, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	ret := ParameterSet{}
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("expected object, got %T", item)
	}
	return ret, nil
}
