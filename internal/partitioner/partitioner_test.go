package partitioner

import "testing"

func TestMergeableDetectsConflict(t *testing.T) {
	a := map[string]string{"dep": "mockA"}
	b := map[string]string{"dep": "mockB"}
	if Mergeable(a, b) {
		t.Fatalf("conflicting values for the same key should not be mergeable")
	}
	c := map[string]string{"other": "mockB"}
	if !Mergeable(a, c) {
		t.Fatalf("disjoint keys should always be mergeable")
	}
	d := map[string]string{"dep": "mockA"}
	if !Mergeable(a, d) {
		t.Fatalf("identical values for a shared key should be mergeable")
	}
}

func TestGreedyPartitionGroupsConflictFreeItems(t *testing.T) {
	items := map[string]map[string]string{
		"t1": {"dep": "mockA"},
		"t2": {"dep": "mockB"},
		"t3": {"other": "mockC"},
	}
	parts := Greedy[string, string]{}.Partition(items)
	if len(parts) != 2 {
		t.Fatalf("expected conflicting t1/t2 to split into 2 partitions, got %d: %v", len(parts), parts)
	}
	total := 0
	for _, p := range parts {
		total += len(p.Items)
	}
	if total != 3 {
		t.Fatalf("every item should appear in exactly one partition, got %d total", total)
	}
}

func TestGreedyPartitionMergesCompatibleItems(t *testing.T) {
	items := map[string]map[string]string{
		"t1": {"dep": "mockA"},
		"t2": {"dep": "mockA"},
	}
	parts := Greedy[string, string]{}.Partition(items)
	if len(parts) != 1 {
		t.Fatalf("compatible items should merge into a single partition, got %d", len(parts))
	}
	if len(parts[0].Items) != 2 {
		t.Fatalf("expected both items in the merged partition, got %v", parts[0].Items)
	}
}
