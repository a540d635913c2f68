package audit

import (
	"encoding/json"
	"sort"
	"strconv"
)

const maskValue = "***"

// 脱敏字段, 命中后整值替换为掩码
var sensitiveFields = map[string]bool{
	"password":              true,
	"token":                 true,
	"awsSecretAccessKey":    true,
	"aws_secret_access_key": true,
	"accessKey":             true,
	"access_key":            true,
	"fcm_token":             true,
}

// 比对时忽略的时间戳字段
var excludedFields = map[string]bool{
	"createdAt":  true,
	"updatedAt":  true,
	"deletedAt":  true,
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// SanitizeRecord 返回脱敏后的快照副本, 嵌套对象同样处理
func SanitizeRecord(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sensitiveFields[k] {
			out[k] = maskValue
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = SanitizeRecord(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// DiffChangedFields 返回前后快照中值发生变化的字段名, 排序稳定.
// 数字字符串与数字视为相等, 数组忽略顺序, 时间戳字段不参与比对.
func DiffChangedFields(prev, next map[string]interface{}) []string {
	changed := make([]string, 0)
	seen := make(map[string]bool)
	for k := range prev {
		seen[k] = true
	}
	for k := range next {
		seen[k] = true
	}
	for k := range seen {
		if excludedFields[k] {
			continue
		}
		if !equalValue(prev[k], next[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func equalValue(a, b interface{}) bool {
	aj, err := json.Marshal(normalize(a))
	if err != nil {
		return false
	}
	bj, err := json.Marshal(normalize(b))
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}

// normalize 归一化取值: 数字字符串转数字, 数组排序, 嵌套逐层处理
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	case []interface{}:
		items := make([]interface{}, len(val))
		keys := make([]string, len(val))
		for i, item := range val {
			items[i] = normalize(item)
			data, _ := json.Marshal(items[i])
			keys[i] = string(data)
		}
		sort.Sort(&byKey{items: items, keys: keys})
		return items
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

type byKey struct {
	items []interface{}
	keys  []string
}

func (s *byKey) Len() int           { return len(s.items) }
func (s *byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s *byKey) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
