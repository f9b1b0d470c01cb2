package remediation

import (
	"math"
	"reflect"

	"oip/dpaccuracy/internal/entity"
)

const matchEpsilon = 0.01

// IsUpdateSafe 写回前的白名单校验：仅允许已知实体/字段组合且取值在安全范围内
func IsUpdateSafe(entityType, field string, value interface{}) bool {
	switch entityType {
	case entity.EntityTypeInventory:
		if field != "quantity" && field != "reserved" {
			return false
		}
		v, ok := toFloat(value)
		if !ok || v != math.Trunc(v) {
			return false
		}
		return v >= 0 && v <= 1_000_000

	case entity.EntityTypePricing:
		if field != "price" && field != "cost" {
			return false
		}
		v, ok := toFloat(value)
		if !ok {
			return false
		}
		return v > 0 && v <= 1_000_000

	case entity.EntityTypeProduct:
		s, ok := value.(string)
		if !ok {
			return false
		}
		switch field {
		case "name":
			return len(s) > 0 && len(s) <= 255
		case "description":
			return len(s) <= 5000
		}
		return false
	}

	return false
}

// ValuesMatch 写回校验：数值按 0.01 容差比较，字符串区分大小写精确比较
func ValuesMatch(a, b interface{}) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return math.Abs(fa-fb) <= matchEpsilon
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa == sb
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
