package domain

import (
	"reflect"
	"testing"
)

func TestDecodeTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["computer vision","NLP"]`, []string{"computer vision", "NLP"}},
		{"empty array", `[]`, []string{}},
		{"null", `null`, []string{}},
		{"plain string", `"computer vision"`, []string{}},
		{"number", `42`, []string{}},
		{"mixed elements", `["a", 1, null, "b"]`, []string{"a", "b"}},
		{"empty input", ``, []string{}},
		{"garbage", `[unterminated`, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeTags([]byte(tc.raw))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("DecodeTags(%s) = %#v, want %#v", tc.raw, got, tc.want)
			}
		})
	}
}
