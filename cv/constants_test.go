package cv

import (
	"errors"
	"testing"

	"cvbridge/cvmod"
)

func TestConstantTables_LookupIn(t *testing.T) {
	rt, _ := newTestRuntime(t)

	tests := []struct {
		name  string
		table ConstantTable
		input string
		want  int
	}{
		{"short name", ColorConversion, "RGBA2GRAY", 11},
		{"full name", ColorConversion, "COLOR_GRAY2RGBA", 9},
		{"lower case", Threshold, "binary_inv", 1},
		{"otsu flag", Threshold, "OTSU", 8},
		{"interpolation", Interpolation, "INTER_LINEAR", 1},
		{"border default", Border, "DEFAULT", 4},
		{"morph shape", MorphShape, "ELLIPSE", 2},
		{"morph op", MorphOp, "CLOSE", 3},
		{"adaptive", AdaptiveMethod, "GAUSSIAN_C", 1},
		{"retrieval", ContourRetrieval, "TREE", 3},
		{"approximation", ContourApproximation, "SIMPLE", 2},
		{"data type", DataTypes, "8UC4", int(cvmod.CV8UC4)},
		{"font", FontFace, "HERSHEY_SIMPLEX", 0},
		{"line type", LineType, "FILLED", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.table.LookupIn(rt, tt.input)
			if err != nil {
				t.Fatalf("LookupIn(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("LookupIn(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestConstantTables_Unknown(t *testing.T) {
	rt, _ := newTestRuntime(t)

	_, err := MorphShape.LookupIn(rt, "CLOSE")
	if !errors.Is(err, ErrUnknownConstant) {
		t.Errorf("LookupIn(CLOSE) on shapes error = %v, want ErrUnknownConstant", err)
	}
}

func TestRuntime_Resolve(t *testing.T) {
	rt, _ := newTestRuntime(t)

	got, err := rt.Resolve(ThreshBinaryInv)
	if err != nil || got != 1 {
		t.Errorf("Resolve(THRESH_BINARY_INV) = %d, %v; want 1", got, err)
	}

	if _, err := rt.Resolve(Const("THRESH_BINARYY")); !errors.Is(err, ErrUnknownConstant) {
		t.Errorf("Resolve(THRESH_BINARYY) error = %v, want ErrUnknownConstant", err)
	}
}

// Every constant a table can hand out must be validated at registration.
func TestConstantTables_CoveredByRequiredSet(t *testing.T) {
	required := make(map[string]bool)
	for _, name := range cvmod.RequiredConstants() {
		required[name] = true
	}

	tables := []ConstantTable{
		ColorConversion, DataTypes, Border, Threshold, AdaptiveMethod, MorphShape, MorphOp,
		Interpolation, ContourRetrieval, ContourApproximation, FontFace, LineType,
	}
	for _, table := range tables {
		for _, c := range table.consts {
			if !required[string(c)] {
				t.Errorf("%s is not a required constant", c)
			}
		}
	}
}

func TestConstantTables_Entries(t *testing.T) {
	rt, _ := newTestRuntime(t)

	entries := MorphShape.Entries(rt)
	want := []ConstantEntry{{"RECT", 0}, {"CROSS", 1}, {"ELLIPSE", 2}}
	if len(entries) != len(want) {
		t.Fatalf("Entries() = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("Entries()[%d] = %v, want %v", i, entries[i], want[i])
		}
	}

	names := MorphShape.Names()
	if len(names) != 3 || names[0] != "CROSS" {
		t.Errorf("Names() = %v, want sorted short names", names)
	}
}
