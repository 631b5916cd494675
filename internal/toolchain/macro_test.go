package toolchain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMacroLine(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"#define __GNUC__ 12", "__GNUC__=12", true},
		{"#define __VERSION__ \"12.2.1 20221205\"", "__VERSION__=\"12.2.1 20221205\"", true},
		{"  #  define  SPACED   1  ", "SPACED=1", true},
		{"#define EMPTY", "EMPTY", true},
		{"#define MAX(a, b) ((a)>(b)?(a):(b))", "MAX(a,b)=((a)>(b)?(a):(b))", true},
		{"#define NOARGS() 42", "NOARGS()=42", true},
		{"#define OBJ (1 + 2)", "OBJ=(1 + 2)", true},
		{"#define\tTAB\t3", "TAB=3", true},
		{"#undef FOO", "", false},
		{"#defineX 1", "", false},
		{"int x = 1;", "", false},
		{"", "", false},
		{"#define 9BAD 1", "", false},
		{"#define BROKEN(a, b", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseMacroLine(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseMacroLine(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseMacroDump(t *testing.T) {
	dump := []byte("#define __arm__ 1\n# 1 \"<stdin>\"\n#define __thumb__ 1\n\n#define F(x) x\n")

	want := []string{"__arm__=1", "__thumb__=1", "F(x)=x"}
	if diff := cmp.Diff(want, ParseMacroDump(dump)); diff != "" {
		t.Errorf("ParseMacroDump mismatch (-want +got):\n%s", diff)
	}
}
