package protection

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Unmarshals a yaml list of elements into the container. Each entry needs a
// "type" field, e.g.
//
//   - type: ptoc
//     name: PTOC2
//     iset: 2000
//     tset: 0
func (c *Container) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// Temporary structure to unmarshal the yaml file
	var unmarshaledYaml []map[string]interface{}
	if err := unmarshal(&unmarshaledYaml); err != nil {
		return err
	}

	for _, yamlEntry := range unmarshaledYaml {
		f, err := createFunctionFromEntry(yamlEntry)
		if err != nil {
			return err
		}
		c.AddFunction(f)
	}

	return nil
}

// Returns a decodeHook function that can be used to decode elements with
// mapstructure, e.g. from a TOML document or spf13/viper.
func GetDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, entry interface{}) (interface{}, error) {
		if t == reflect.TypeOf((*Function)(nil)).Elem() {
			if f, ok := entry.(Function); ok {
				return f, nil // already built, e.g. while copying a decoded Container
			}
			return createFunctionFromEntry(entry)
		}
		if t == reflect.TypeOf(Container{}) {
			return decodeContainer(entry)
		}
		return entry, nil
	}
}

// Builds a Container from a list of entries.
func decodeContainer(data interface{}) (interface{}, error) {
	entries, ok := data.([]interface{})
	if !ok {
		if maps, isMaps := data.([]map[string]interface{}); isMaps {
			for _, m := range maps {
				entries = append(entries, m)
			}
		} else {
			return data, nil
		}
	}

	c := make(Container, len(entries))
	for _, entry := range entries {
		f, err := createFunctionFromEntry(entry)
		if err != nil {
			return nil, err
		}
		c.AddFunction(f)
	}
	return c, nil
}

// Creates an element from a decoded entry based on its "type" (or "Type") field.
func createFunctionFromEntry(entry interface{}) (Function, error) {
	m, err := toStringMap(entry)
	if err != nil {
		return nil, err
	}

	// some parsers keep the key case, some lower it
	typeStr, ok := m["type"].(string)
	if !ok {
		typeStr, ok = m["Type"].(string)
		if !ok {
			return nil, errors.New("protection function type field is missing or not a string")
		}
	}
	delete(m, "type")
	delete(m, "Type")

	switch typeStr {
	case "ptoc":
		var params PtocParams
		if err := decodeParams(m, &params); err != nil {
			return nil, fmt.Errorf("decode ptoc: %w", err)
		}
		return NewPtocFromParams(params)
	default:
		return nil, fmt.Errorf("unknown protection function type: %s", typeStr)
	}
}

// Use mapstructure to decode m into params, accepting numbers of any kind.
func decodeParams[T any](m map[string]interface{}, params *T) error {
	decoderConfig := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           params,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(m)
}

// yaml.v2 produces map[interface{}]interface{} for nested maps, other decoders
// produce map[string]interface{}.
func toStringMap(entry interface{}) (map[string]interface{}, error) {
	switch m := entry.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key in protection function entry: %v", k)
			}
			out[key] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("entry cannot be parsed to map[string]interface{}: %v", entry)
	}
}
