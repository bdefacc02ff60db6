package conditions

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// Filter operators.
const (
	OperatorEquals      = "equals"
	OperatorContains    = "contains"
	OperatorGreaterThan = "greaterThan"
	OperatorLessThan    = "lessThan"
)

const defaultFilterField = "value"

// Filter compares payload[config.field] against config.targetValue using
// config.condition. The field defaults to "value" and may be a dotted path.
func Filter(_ context.Context, node *models.Node, payload models.Payload) (bool, map[string]any, error) {
	operator := node.ConfigString("condition")
	if operator == "" {
		return false, nil, fmt.Errorf("%w: node %s: filter requires config.condition", ErrInvalidConditionConfig, node.ID)
	}

	field := node.ConfigString("field")
	if field == "" {
		field = defaultFilterField
	}

	target := node.Config["targetValue"]
	value, found := lookup(payload, field)

	details := map[string]any{
		"field":           field,
		"operator":        operator,
		"target_value":    target,
		"evaluated_value": value,
	}

	if !found {
		return false, details, validOperator(node, operator)
	}

	var (
		result bool
		err    error
	)

	switch operator {
	case OperatorEquals:
		result = equals(value, target)
	case OperatorContains:
		result = contains(value, target)
	case OperatorGreaterThan, OperatorLessThan:
		result, err = compare(operator, value, target)
		if err != nil {
			return false, nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
	default:
		return false, nil, validOperator(node, operator)
	}

	return result, details, nil
}

// ErrorCheck is true iff the payload carries an "error" field.
func ErrorCheck(_ context.Context, _ *models.Node, payload models.Payload) (bool, map[string]any, error) {
	value, found := payload["error"]

	return found, map[string]any{"evaluated_value": value}, nil
}

func validOperator(node *models.Node, operator string) error {
	switch operator {
	case OperatorEquals, OperatorContains, OperatorGreaterThan, OperatorLessThan:
		return nil
	default:
		return fmt.Errorf("%w: node %s: unsupported filter condition %q", ErrInvalidConditionConfig, node.ID, operator)
	}
}

func lookup(payload models.Payload, path string) (any, bool) {
	var current any = payload

	for _, part := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func equals(value, target any) bool {
	if a, ok := toFloat(value); ok {
		if b, ok := toFloat(target); ok {
			return a == b
		}
	}

	if reflect.DeepEqual(value, target) {
		return true
	}

	return fmt.Sprint(value) == fmt.Sprint(target)
}

func contains(value, target any) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, fmt.Sprint(target))
	case []any:
		for _, item := range v {
			if equals(item, target) {
				return true
			}
		}

		return false
	case map[string]any:
		_, ok := v[fmt.Sprint(target)]

		return ok
	default:
		return strings.Contains(fmt.Sprint(v), fmt.Sprint(target))
	}
}

func compare(operator string, value, target any) (bool, error) {
	a, ok := toFloat(value)
	if !ok {
		return false, fmt.Errorf("%w: %s needs a numeric field value, got %T", ErrInvalidConditionConfig, operator, value)
	}

	b, ok := toFloat(target)
	if !ok {
		return false, fmt.Errorf("%w: %s needs a numeric targetValue, got %T", ErrInvalidConditionConfig, operator, target)
	}

	if operator == OperatorGreaterThan {
		return a > b, nil
	}

	return a < b, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
