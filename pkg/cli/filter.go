package cli

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyQuery runs a jq expression over a result value. The value is
// round-tripped through JSON so struct tags govern field names, matching
// what the user sees in JSON output. A query yielding a single value
// returns that value; multiple values are returned as a slice.
func ApplyQuery(expr string, result any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}

	// gojq operates on plain maps and slices, not structs.
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode for jq: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode for jq: %w", err)
	}

	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, v)
	}

	switch len(out) {
	case 0:
		return nil, fmt.Errorf("jq expression %q returned no result", expr)
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}
