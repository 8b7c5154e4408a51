// Command pagestorectl inspects and manipulates pagestore files from the
// shell.
//
// Usage:
//
//	pagestorectl create <path> <pageSize>
//	pagestorectl stat <path>
//	pagestorectl alloc <path> <n>
//	pagestorectl free <path> <id...>
//	pagestorectl compact-check <path>
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/brinkdb/pagestore/pagestore"
)

func main() {
	verbose := pflag.BoolP("verbose", "v", false, "log store lifecycle events to stderr")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	opts := storeOptions(*verbose)

	var err error
	switch cmd := args[0]; cmd {
	case "create":
		err = runCreate(args[1:], opts)
	case "stat":
		err = runStat(args[1:], opts)
	case "alloc":
		err = runAlloc(args[1:], opts)
	case "free":
		err = runFree(args[1:], opts)
	case "compact-check":
		err = runCompactCheck(args[1:], opts)
	default:
		fmt.Fprintf(os.Stderr, "pagestorectl: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pagestorectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  pagestorectl create <path> <pageSize>
  pagestorectl stat <path>
  pagestorectl alloc <path> <n>
  pagestorectl free <path> <id...>
  pagestorectl compact-check <path>`)
}

func storeOptions(verbose bool) []pagestore.Option {
	if !verbose {
		return nil
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	return []pagestore.Option{pagestore.WithLogger(pagestore.NewLogrusLogger(log))}
}

func runCreate(args []string, opts []pagestore.Option) error {
	if len(args) != 2 {
		return fmt.Errorf("create requires <path> <pageSize>")
	}
	pageSize, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid page size %q: %w", args[1], err)
	}

	s, err := pagestore.Create(args[0], uint32(pageSize), opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("created %s (pageSize=%d)\n", args[0], s.PageSize())
	return nil
}

func runStat(args []string, opts []pagestore.Option) error {
	if len(args) != 1 {
		return fmt.Errorf("stat requires <path>")
	}

	s, err := pagestore.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	stat := s.Inspect()
	fmt.Printf("pageSize:     %d\n", stat.PageSize)
	fmt.Printf("pageCount:    %d\n", stat.PageCount)
	fmt.Printf("epoch:        %d\n", stat.Epoch)
	fmt.Printf("metaRoot:     %d\n", stat.MetaRoot)
	fmt.Printf("freeListHead: %d\n", stat.FreeListHead)
	fmt.Printf("freePages:    %d\n", stat.FreePages)
	fmt.Printf("pendingFree:  %d\n", stat.PendingFree)
	fmt.Printf("livePages:    %d\n", stat.LivePages)
	return nil
}

func runAlloc(args []string, opts []pagestore.Option) error {
	if len(args) != 2 {
		return fmt.Errorf("alloc requires <path> <n>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid count %q", args[1])
	}

	s, err := pagestore.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	var ids []pagestore.PageID
	err = s.Modify(func(b pagestore.WriteBatch) error {
		for i := 0; i < n; i++ {
			id, err := b.Allocate()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runFree(args []string, opts []pagestore.Option) error {
	if len(args) < 2 {
		return fmt.Errorf("free requires <path> <id...>")
	}

	ids := make([]pagestore.PageID, 0, len(args)-1)
	for _, a := range args[1:] {
		n, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid page id %q: %w", a, err)
		}
		ids = append(ids, pagestore.PageID(n))
	}

	s, err := pagestore.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	err = s.Modify(func(b pagestore.WriteBatch) error {
		for _, id := range ids {
			if err := b.Free(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("freed %d page(s)\n", len(ids))
	return nil
}

func runCompactCheck(args []string, opts []pagestore.Option) error {
	if len(args) != 1 {
		return fmt.Errorf("compact-check requires <path>")
	}

	s, err := pagestore.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.CompactCheck()
	if err != nil {
		return err
	}

	if report.Overlap {
		fmt.Printf("FAIL: page %d appears in both the free chain and the pending-free set\n", report.OverlapPage)
		os.Exit(1)
	}
	fmt.Println("OK: free chain and pending-free set are disjoint")
	return nil
}
