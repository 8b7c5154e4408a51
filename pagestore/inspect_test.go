package pagestore

import "testing"

func TestInspectAndCompactCheck(t *testing.T) {
	s, err := CreateMemory(256)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var pageA PageID
	if err := s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		if err != nil {
			return err
		}
		pageA = id
		b.SetMetaRoot(id)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Modify(func(b WriteBatch) error {
		_, err := b.Allocate()
		if err != nil {
			return err
		}
		return b.Free(pageA)
	}); err != nil {
		t.Fatal(err)
	}

	stats := s.Inspect()
	if stats.PendingFree != 1 {
		t.Fatalf("PendingFree = %d, want 1", stats.PendingFree)
	}
	if stats.FreePages != 0 {
		t.Fatalf("FreePages = %d, want 0 (not linked until next transaction)", stats.FreePages)
	}

	report, err := s.CompactCheck()
	if err != nil {
		t.Fatal(err)
	}
	if report.Overlap {
		t.Fatalf("unexpected overlap at page %d", report.OverlapPage)
	}
}
