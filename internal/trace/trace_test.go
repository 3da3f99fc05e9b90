package trace

import (
	"strings"
	"testing"
)

func TestParse_WellFormedTrace(t *testing.T) {
	input := strings.NewReader(`# heapcheck-trace v1.0.0
alloc a 64
alloc b 128
free a
realloc b 256
check
`)

	ops, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Kind{Alloc, Alloc, Free, Realloc, Check}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d", len(ops), len(want))
	}

	for i, k := range want {
		if ops[i].Kind != k {
			t.Fatalf("op %d kind = %v, want %v", i, ops[i].Kind, k)
		}
	}

	if ops[0].Tag != "a" || ops[0].Size != 64 {
		t.Fatalf("op 0 = %+v, want tag=a size=64", ops[0])
	}
}

func TestParse_IgnoresCommentsAndBlankLines(t *testing.T) {
	input := strings.NewReader("\n# just a comment\n\nalloc a 1\n\n")

	ops, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(ops))
	}
}

func TestParse_MissingHeaderDefaultsOk(t *testing.T) {
	ops, err := Parse(strings.NewReader("alloc a 1\nfree a\n"))
	if err != nil {
		t.Fatalf("Parse without header: %v", err)
	}

	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
}

func TestParse_RejectsIncompatibleVersion(t *testing.T) {
	_, err := Parse(strings.NewReader("# heapcheck-trace v2.0.0\nalloc a 1\n"))
	if err == nil {
		t.Fatalf("expected an error for an incompatible trace version")
	}
}

func TestParse_RejectsMalformedLine(t *testing.T) {
	cases := []string{
		"alloc a\n",
		"free\n",
		"realloc a\n",
		"check extra\n",
		"bogus a 1\n",
	}

	for _, c := range cases {
		if _, err := Parse(strings.NewReader(c)); err == nil {
			t.Fatalf("expected an error parsing %q", c)
		}
	}
}
