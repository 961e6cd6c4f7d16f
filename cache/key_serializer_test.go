package cache

import (
	"strings"
	"testing"

	"github.com/goliatone/go-listquery/pkg/testsupport"
)

// keyScenario is a named group of serializer cases loaded from testdata.
type keyScenario struct {
	Name  string    `json:"name"`
	Cases []keyCase `json:"cases"`
}

type keyCase struct {
	Namespace   string `json:"namespace"`
	Args        []any  `json:"args"`
	ExpectedKey string `json:"expectedKey"`
}

type keyFixtures struct {
	Scenarios []keyScenario `json:"scenarios"`
}

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name      string
		namespace string
		args      []any
		want      string
	}{
		{
			name:      "no args",
			namespace: "students",
			args:      []any{},
			want:      "students",
		},
		{
			name:      "single int",
			namespace: "students",
			args:      []any{42},
			want:      joinWithSeparator("students", "42"),
		},
		{
			name:      "multiple basic types",
			namespace: "students",
			args:      []any{1, "maria", true, 3.14},
			want:      joinWithSeparator("students", "1", `"maria"`, "true", "3.14"),
		},
		{
			name:      "string containing the separator",
			namespace: "students",
			args:      []any{"a::b"},
			want:      joinWithSeparator("students", `"a::b"`),
		},
		{
			name:      "empty string",
			namespace: "students",
			args:      []any{""},
			want:      joinWithSeparator("students", `""`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.namespace, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "nil interface", args: []any{nil}, want: joinWithSeparator("ns", "nil")},
		{name: "nil pointer", args: []any{(*int)(nil)}, want: joinWithSeparator("ns", "nil")},
		{name: "nil slice", args: []any{([]int)(nil)}, want: joinWithSeparator("ns", "slice:nil")},
		{name: "nil map", args: []any{(map[string]int)(nil)}, want: joinWithSeparator("ns", "map:nil")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey("ns", tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Composite(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type order string
	type filter struct {
		Field string
		Limit int
		note  string
	}

	value := 7

	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "int slice", args: []any{[]int{1, 2, 3}}, want: joinWithSeparator("ns", "slice[3]:{1,2,3}")},
		{name: "string slice", args: []any{[]string{"a", "b"}}, want: joinWithSeparator("ns", `slice[2]:{"a","b"}`)},
		{name: "array", args: []any{[2]int{4, 5}}, want: joinWithSeparator("ns", "array[2]:{4,5}")},
		{name: "sorted map", args: []any{map[string]int{"b": 2, "a": 1}}, want: joinWithSeparator("ns", `map[2]:{"a"=1,"b"=2}`)},
		{name: "named string", args: []any{order("asc")}, want: joinWithSeparator("ns", `"asc"`)},
		{name: "struct skips unexported", args: []any{filter{Field: "name", Limit: 10, note: "x"}}, want: joinWithSeparator("ns", `struct:{Field:"name",Limit:10}`)},
		{name: "pointer deref", args: []any{&value}, want: joinWithSeparator("ns", "7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey("ns", tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Injective(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	// pairs that a naive join would collapse into the same key
	pairs := [][2][]any{
		{{"a::b", "c"}, {"a", "b::c"}},
		{{"", "x"}, {"x", ""}},
		{{"1", 1}, {1, "1"}},
		{{`"`, ""}, {"", `"`}},
		{{"maria", 1, 10, "name", "asc"}, {"maria", 10, 1, "name", "asc"}},
	}

	for _, p := range pairs {
		k1 := serializer.SerializeKey("students", p[0]...)
		k2 := serializer.SerializeKey("students", p[1]...)
		if k1 == k2 {
			t.Errorf("expected distinct keys for %v and %v, both got %s", p[0], p[1], k1)
		}
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	fn := func() {}

	key1 := serializer.SerializeKey("ns", fn)
	key2 := serializer.SerializeKey("ns", fn)
	if key1 != key2 {
		t.Errorf("function serialization should be stable: %v != %v", key1, key2)
	}
	if !strings.HasPrefix(key1, joinWithSeparator("ns", "func")+":") {
		t.Errorf("function serialization should use func: prefix, got: %v", key1)
	}
}

func TestDefaultKeySerializer_Fixtures(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	var fixtures keyFixtures
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("key_serializer_scenarios.json"), &fixtures)

	for _, scenario := range fixtures.Scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			for _, tc := range scenario.Cases {
				got := serializer.SerializeKey(tc.Namespace, tc.Args...)
				if got != tc.ExpectedKey {
					t.Errorf("SerializeKey(%s, %v) = %v, want %v", tc.Namespace, tc.Args, got, tc.ExpectedKey)
				}
			}
		})
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	args := []any{"maria", 10, 2, "name", "asc"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey("students", args...)
	}
}
