package book

import "testing"

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.UpsertLevel(100)
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(100); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(200)
	if tree.MinLevel().Price != 100 {
		t.Error("expected min=100")
	}
	if tree.MaxLevel().Price != 200 {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(100) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestRBTreeDeleteNonExistentLevel(t *testing.T) {
	tree := newRBTree()
	if tree.DeleteLevel(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestRBTreeEmptyMinMax(t *testing.T) {
	tree := newRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestRBTreeUpsertDuplicateLevel(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	if pl1 != pl2 {
		t.Error("Upsert should return the same node for duplicate level")
	}
}

func TestRBTreeOrderedTraversal(t *testing.T) {
	tree := newRBTree()
	prices := []int64{50, 10, 90, 30, 70, 20, 80, 40, 60, 100}
	for _, p := range prices {
		tree.UpsertLevel(p)
	}
	if tree.Size() != len(prices) {
		t.Fatalf("size = %d, want %d", tree.Size(), len(prices))
	}

	var asc []int64
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		asc = append(asc, lvl.Price)
		return true
	})
	for i := 1; i < len(asc); i++ {
		if asc[i-1] >= asc[i] {
			t.Fatalf("ascending walk out of order: %v", asc)
		}
	}

	var desc []int64
	tree.ForEachDescending(func(lvl *PriceLevel) bool {
		desc = append(desc, lvl.Price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		if desc[i-1] <= desc[i] {
			t.Fatalf("descending walk out of order: %v", desc)
		}
	}
}

func TestRBTreeDeleteAll(t *testing.T) {
	tree := newRBTree()
	for p := int64(1); p <= 64; p++ {
		tree.UpsertLevel(p)
	}
	for p := int64(1); p <= 64; p += 2 {
		if !tree.DeleteLevel(p) {
			t.Fatalf("delete %d failed", p)
		}
	}
	if tree.Size() != 32 {
		t.Fatalf("size = %d after deleting odds, want 32", tree.Size())
	}
	if tree.MinLevel().Price != 2 {
		t.Errorf("min = %d, want 2", tree.MinLevel().Price)
	}
	for p := int64(2); p <= 64; p += 2 {
		if !tree.DeleteLevel(p) {
			t.Fatalf("delete %d failed", p)
		}
	}
	if tree.Size() != 0 || tree.MinLevel() != nil {
		t.Error("tree should be empty")
	}
}
