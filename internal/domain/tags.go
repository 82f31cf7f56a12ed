package domain

import "encoding/json"

// DecodeTags reads a stored tag field. Anything other than a JSON array
// (a plain string, null, a number) yields an empty list; non-string
// array elements are dropped.
func DecodeTags(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
