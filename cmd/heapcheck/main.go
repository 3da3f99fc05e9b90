// Command heapcheck replays a trace of alloc/free/realloc/check operations
// against an allocator.Heap: a way to script allocation patterns and assert
// their invariants hold without writing a Go test for every one.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/tagheap/tagheap/internal/allocator"
	"github.com/tagheap/tagheap/internal/cliutil"
	"github.com/tagheap/tagheap/internal/region"
	"github.com/tagheap/tagheap/internal/trace"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
		verify      = flag.Bool("verify", false, "run the invariant checker after every operation, not just explicit check lines")
		watch       = flag.Bool("watch", false, "re-run the trace file every time it is modified")
		initChunk   = flag.Uint("init-chunk", uint(allocator.CHUNKSIZE), "initial and default heap-growth chunk size, in bytes")
		maxHeap     = flag.Uint("max-heap", 64*1024*1024, "maximum heap size, in bytes")
		mapped      = flag.Bool("mapped", false, "back the heap with a real OS memory mapping instead of a Go slice")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <trace-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replays a heapcheck trace file against a tagheap allocator.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		cliutil.PrintVersion("heapcheck", *jsonOutput)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)

	runOnce := func() error {
		return runTrace(path, *verify, uint32(*initChunk), uint32(*maxHeap), *mapped)
	}

	if err := runOnce(); err != nil {
		cliutil.ExitWithError("%v", err)
	}

	if !*watch {
		return
	}

	if err := watchAndRerun(path, runOnce); err != nil {
		cliutil.ExitWithError("watch: %v", err)
	}
}

func runTrace(path string, verify bool, initChunk, maxHeap uint32, useMapped bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ops, err := trace.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	opts := []allocator.Option{
		allocator.WithInitialChunk(initChunk),
		allocator.WithMaxHeap(maxHeap),
		allocator.WithDiagnostics(allocator.NewTextDiagnostics(os.Stderr)),
	}

	if useMapped {
		provider, err := region.NewMappedProvider(int(maxHeap))
		if err != nil {
			return fmt.Errorf("reserve mapped region: %w", err)
		}

		opts = append(opts, allocator.WithProvider(provider))
	}

	heap, err := allocator.NewHeap(opts...)
	if err != nil {
		return fmt.Errorf("init heap: %w", err)
	}
	defer heap.Close()

	replayer := trace.NewReplayer(heap, verify, os.Stdout)
	if err := replayer.Run(ops); err != nil {
		return err
	}

	fmt.Printf("%s: %d operations applied, heap ok\n", path, replayer.Applied())

	return nil
}

// watchAndRerun re-invokes run every time path is written to, until the
// process is interrupted. Modeled on the project's fsnotify-backed file
// watcher: a single watcher goroutine feeding buffered event/error
// channels that the caller drains in a select loop.
func watchAndRerun(path string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	fmt.Printf("watching %s for changes (Ctrl+C to stop)\n", path)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
