package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func parseFile(data []byte) ([]*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("definition file is empty")
	}

	if trimmed[0] != '[' {
		def, err := Parse(trimmed)
		if err != nil {
			return nil, err
		}
		return []*Definition{def}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode definition list: %w", err)
	}

	defs := make([]*Definition, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		def, err := Parse(r)
		if err != nil {
			return nil, fmt.Errorf("definition %d: %w", i, err)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("duplicate definition id %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs, nil
}
