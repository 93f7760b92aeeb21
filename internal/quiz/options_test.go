package quiz

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"string array", `["a","b","c"]`, []string{"a", "b", "c"}},
		{"mixed scalars", `["yes", 2, true, 3.5]`, []string{"yes", "2", "true", "3.5"}},
		{"object items", `[{"text":"x"},{"label":"y"},{"value":3}]`, []string{"x", "y", "3"}},
		{"stringified array", `"[\"one\",\"two\"]"`, []string{"one", "two"}},
		{"numeric keys", `{"1":"second","0":"first","10":"last"}`, []string{"first", "second", "last"}},
		{"whitespace", "  [\"a\", \"b\"]  ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOptions(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeOptions_Rejects(t *testing.T) {
	bad := []string{
		``,
		`null`,
		`42`,
		`true`,
		`[]`,
		`[null]`,
		`[["nested"]]`,
		`{"a":"x"}`,
		`[{"id":1}]`,
		`"not json"`,
		`"\"[\\\"double\\\"]\""`,
	}
	for _, raw := range bad {
		_, err := NormalizeOptions(json.RawMessage(raw))
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("NormalizeOptions(%s) err = %v, want ErrInvalidOptions", raw, err)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	good := Question{ID: "q1", Options: []string{"a", "b"}, CorrectIndex: 1, Points: 5}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []Question{
		{Options: []string{"a", "b"}},
		{ID: "q", Options: []string{"a"}},
		{ID: "q", Options: []string{"a", "b"}, CorrectIndex: 2},
		{ID: "q", Options: []string{"a", "b"}, CorrectIndex: -1},
		{ID: "q", Options: []string{"a", "b"}, Points: -1},
	}
	for i, q := range bad {
		if err := q.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
