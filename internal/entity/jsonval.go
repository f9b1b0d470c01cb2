package entity

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// JSONValue 将任意值序列化为 JSON 列值（序列化失败时返回 null）
func JSONValue(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// DecodeJSONValue 将 JSON 列值反序列化为 interface{}
// 数字统一解码为 float64，空列值返回 nil
func DecodeJSONValue(raw datatypes.JSON) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
