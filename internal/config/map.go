package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
)

// structToMap flattens a config struct into the nested map the merge
// steps operate on, keyed by json tags.
func structToMap(cfg any) map[string]any {
	val := reflect.ValueOf(cfg)
	typ := val.Type()
	out := make(map[string]any)
	for i := range typ.NumField() {
		field := typ.Field(i)
		key := tagName(field)
		if key == "" {
			continue
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			out[key] = structToMap(fv.Interface())
			continue
		}
		out[key] = fv.Interface()
	}
	return out
}

func tagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}

// flattenKeys lists the leaf key paths of a nested map, dot joined.
func flattenKeys(m map[string]any) []string {
	var keys []string
	flattenInto(m, "", &keys)
	return keys
}

func flattenInto(m map[string]any, prefix string, keys *[]string) {
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			flattenInto(child, full, keys)
			continue
		}
		*keys = append(*keys, full)
	}
}

// mergeMaps writes src over dst, descending into maps both sides
// share so sibling keys survive.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

// setByPath writes value at a dot separated key path, creating
// intermediate maps as needed.
func setByPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := m
	for i, part := range parts {
		if i == len(parts)-1 {
			current[part] = value
			return
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
}

func parseYAML(content []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	normalized, ok := normalizeKeys(raw).(map[string]any)
	if !ok {
		return nil, errors.New("config root must be a mapping")
	}
	return normalized, nil
}

// normalizeKeys rewrites map[any]any nodes, which older YAML inputs
// produce, into map[string]any.
func normalizeKeys(val any) any {
	switch typed := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = normalizeKeys(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprintf("%v", k)] = normalizeKeys(v)
		}
		return out
	default:
		return val
	}
}

func decodeMap(data map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
