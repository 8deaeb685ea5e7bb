package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// iniCodec teaches viper the INI format: one map level per section, keys in
// the default section stay at the top level.
type iniCodec struct{}

func (iniCodec) Decode(b []byte, v map[string]any) error {
	f, err := ini.Load(b)
	if err != nil {
		return fmt.Errorf("parse ini: %w", err)
	}

	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			for _, key := range section.Keys() {
				v[strings.ToLower(key.Name())] = key.Value()
			}
			continue
		}
		values := make(map[string]any, len(section.Keys()))
		for _, key := range section.Keys() {
			values[strings.ToLower(key.Name())] = key.Value()
		}
		v[strings.ToLower(section.Name())] = values
	}
	return nil
}

func (iniCodec) Encode(v map[string]any) ([]byte, error) {
	f := ini.Empty()

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch val := v[k].(type) {
		case map[string]any:
			section, err := f.NewSection(k)
			if err != nil {
				return nil, err
			}
			for name, inner := range val {
				if _, err := section.NewKey(name, fmt.Sprint(inner)); err != nil {
					return nil, err
				}
			}
		default:
			if _, err := f.Section("").NewKey(k, fmt.Sprint(val)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
