package errors

import "testing"

func TestOutOfMemory_Category(t *testing.T) {
	err := OutOfMemory("extendHeap")

	if err.Category != CategoryOOM {
		t.Fatalf("Category = %s, want %s", err.Category, CategoryOOM)
	}

	if err.Context["operation"] != "extendHeap" {
		t.Fatalf("Context[operation] = %v, want extendHeap", err.Context["operation"])
	}
}

func TestInvalidArgument_Category(t *testing.T) {
	err := InvalidArgument("Check", "heap not initialized")

	if err.Category != CategoryInvalid {
		t.Fatalf("Category = %s, want %s", err.Category, CategoryInvalid)
	}
}

func TestInvariantViolation_Category(t *testing.T) {
	err := InvariantViolation("cycle detected")

	if err.Category != CategoryInvariant {
		t.Fatalf("Category = %s, want %s", err.Category, CategoryInvariant)
	}

	if err.Message != "cycle detected" {
		t.Fatalf("Message = %q, want %q", err.Message, "cycle detected")
	}
}

func TestError_FormatsAllFields(t *testing.T) {
	err := OutOfMemory("Init")

	got := err.Error()
	want := "[OOM:OUT_OF_MEMORY] heap region provider declined to extend during Init (caller: github.com/tagheap/tagheap/internal/errors.TestError_FormatsAllFields)"

	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
