// Package trace parses and replays the line-oriented trace format consumed
// by cmd/heapcheck: one operation per line against a single Heap, driven
// from a file instead of Go source, so the same allocation/free pattern can
// be replayed, diffed, and checked without recompiling a test binary.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CurrentVersion is the trace format version this package writes and
// understands best. SupportedConstraint is the range of versions it will
// still accept when reading.
const (
	CurrentVersion      = "1.0.0"
	SupportedConstraint = "^1.0.0"
)

// Kind identifies a trace operation.
type Kind int

const (
	// Alloc requests a block of Size bytes, binding the result to Tag.
	Alloc Kind = iota
	// Free releases the block bound to Tag.
	Free
	// Realloc resizes the block bound to Tag to Size bytes, rebinding Tag
	// to the (possibly new) returned address.
	Realloc
	// Check runs the heap's invariant checker.
	Check
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Free:
		return "free"
	case Realloc:
		return "realloc"
	case Check:
		return "check"
	default:
		return "unknown"
	}
}

// Op is a single parsed trace line.
type Op struct {
	Kind Kind
	Tag  string
	Size uint32
	Line int
}

// Parse reads a trace file: an optional "# heapcheck-trace v<version>"
// header line, then one operation per non-blank, non-comment line. It
// rejects a header whose version does not satisfy SupportedConstraint, and
// a missing header is treated as CurrentVersion for backward-compatible
// hand-written fixtures.
func Parse(r io.Reader) ([]Op, error) {
	constraint, err := semver.NewConstraint(SupportedConstraint)
	if err != nil {
		return nil, fmt.Errorf("trace: bad constraint %q: %w", SupportedConstraint, err)
	}

	scanner := bufio.NewScanner(r)
	ops := make([]Op, 0, 64)
	lineNo := 0
	sawHeader := false

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "# heapcheck-trace") {
			sawHeader = true

			v, err := parseHeaderVersion(line)
			if err != nil {
				return nil, fmt.Errorf("trace:%d: %w", lineNo, err)
			}

			if !constraint.Check(v) {
				return nil, fmt.Errorf("trace:%d: version %s does not satisfy %s", lineNo, v, SupportedConstraint)
			}

			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("trace:%d: %w", lineNo, err)
		}

		op.Line = lineNo
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}

	_ = sawHeader // header is optional; absence is not an error.

	return ops, nil
}

func parseHeaderVersion(line string) (*semver.Version, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "#" || fields[1] != "heapcheck-trace" {
		return nil, fmt.Errorf("malformed header %q", line)
	}

	raw := strings.TrimPrefix(fields[2], "v")

	return semver.NewVersion(raw)
}

func parseLine(line string) (Op, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Op{}, fmt.Errorf("empty operation")
	}

	switch fields[0] {
	case "alloc":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("alloc requires <tag> <size>, got %q", line)
		}

		size, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Op{}, fmt.Errorf("alloc: bad size %q: %w", fields[2], err)
		}

		return Op{Kind: Alloc, Tag: fields[1], Size: uint32(size)}, nil

	case "free":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("free requires <tag>, got %q", line)
		}

		return Op{Kind: Free, Tag: fields[1]}, nil

	case "realloc":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("realloc requires <tag> <size>, got %q", line)
		}

		size, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Op{}, fmt.Errorf("realloc: bad size %q: %w", fields[2], err)
		}

		return Op{Kind: Realloc, Tag: fields[1], Size: uint32(size)}, nil

	case "check":
		if len(fields) != 1 {
			return Op{}, fmt.Errorf("check takes no arguments, got %q", line)
		}

		return Op{Kind: Check}, nil

	default:
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
}

// Header renders the header line this package writes for traces it
// generates itself.
func Header() string {
	return fmt.Sprintf("# heapcheck-trace v%s", CurrentVersion)
}
