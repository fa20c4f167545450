package protection

import (
	"encoding/json"
	"fmt"
)

// Returns the container as a list of entries with a "type" field, the inverse
// of UnmarshalYAML.
func (c Container) Entries() ([]map[string]interface{}, error) {
	entries := make([]map[string]interface{}, 0, len(c))
	for _, key := range c.Keys() {
		switch f := c[key].(type) {
		case *Ptoc:
			params := f.Params()
			entries = append(entries, map[string]interface{}{
				"type":    f.TypeAsString(),
				"name":    params.Name,
				"iset":    params.Iset,
				"tset":    params.Tset,
				"enabled": *params.Enabled,
			})
		default:
			return nil, fmt.Errorf("cannot encode protection function type: %s", f.TypeAsString())
		}
	}
	return entries, nil
}

func (c Container) MarshalYAML() (interface{}, error) {
	return c.Entries()
}

func (c Container) MarshalJSON() ([]byte, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

// Unmarshals a JSON list of elements into the container, see UnmarshalYAML.
func (c *Container) UnmarshalJSON(data []byte) error {
	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	for _, entry := range entries {
		f, err := createFunctionFromEntry(entry)
		if err != nil {
			return err
		}
		c.AddFunction(f)
	}
	return nil
}
