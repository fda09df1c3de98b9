package pattern

import "testing"

func TestParseScalar(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Field
		wantErr bool
	}{
		{name: "nil", input: "nil", want: Unset()},
		{name: "empty", input: "", want: Unset()},
		{name: "true", input: "true", want: Bool(true)},
		{name: "false", input: "false", want: Bool(false)},
		{name: "integer", input: "15", want: Exact(15)},
		{name: "negative integer", input: "-2", want: Exact(-2)},
		{name: "list", input: "1,15,-1", want: List(1, 15, -1)},
		{name: "list with spaces", input: "1, 15, -1", want: List(1, 15, -1)},
		{name: "inclusive range", input: "10..20", want: mustRange(t, 10, 20)},
		{name: "exclusive range", input: "10...20", want: func() Field { f, _ := RangeExclusive(10, 20); return f }()},
		{name: "stepped inclusive", input: "10..20/2", want: mustStepped(t, 10, 20, 2)},
		{name: "stepped exclusive", input: "10...21/2", want: mustStepped(t, 10, 20, 2)},
		{name: "negative range", input: "-7..-1", want: func() Field { f, _ := Range(-7, -1); return f }()},
		{name: "zero step rejected", input: "10..20/0", wantErr: true},
		{name: "negative step rejected", input: "10..20/-1", wantErr: true},
		{name: "step without range rejected", input: "5/2", wantErr: true},
		{name: "garbage rejected", input: "banana", wantErr: true},
		{name: "bad range end rejected", input: "10..x", wantErr: true},
		{name: "bare predicate sentinel is always-true", input: "->", want: Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScalar(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScalar(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseScalar(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseScalar_Predicate(t *testing.T) {
	f, err := ParseScalar("->v % 2 == 0")
	if err != nil {
		t.Fatalf("ParseScalar error = %v", err)
	}
	if f.Kind() != KindPredicate {
		t.Fatalf("Kind() = %v, want KindPredicate", f.Kind())
	}
	if !f.Match(4, 59) || f.Match(5, 59) {
		t.Error("predicate field should match even values only")
	}

	if _, err := ParseScalar("->v +"); err == nil {
		t.Error("malformed predicate expression should fail")
	}
}

func TestScalar_RoundTrip(t *testing.T) {
	inputs := []string{"nil", "true", "false", "15", "-2", "1,15,-1", "10..20", "10...20", "10..20/2"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			f, err := ParseScalar(in)
			if err != nil {
				t.Fatalf("ParseScalar(%q) error = %v", in, err)
			}
			back, err := ParseScalar(f.String())
			if err != nil {
				t.Fatalf("reparsing %q error = %v", f.String(), err)
			}
			if !f.Equal(back) {
				t.Errorf("round trip of %q changed %v to %v", in, f, back)
			}
		})
	}
}
