package dao

import "fmt"

// Parameter is a named List filter; Value is a single value or a []string of
// alternatives.
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Matches reports whether actual satisfies the parameter.
func (p *Parameter) Matches(actual interface{}) bool {
	if p == nil {
		return true
	}
	text := fmt.Sprintf("%v", actual)
	switch values := p.Value.(type) {
	case []string:
		for _, candidate := range values {
			if candidate == text {
				return true
			}
		}
		return len(values) == 0
	default:
		return fmt.Sprintf("%v", values) == text
	}
}
