package storage

import "testing"

func TestMemoryPutGetDescendingOrder(t *testing.T) {
	m := NewMemory()
	for _, v := range []string{"v0", "v1", "v2"} {
		if _, err := m.Put("k", v); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	records, err := m.Get("k", nil, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"v2", "v1", "v0"} {
		if records[i].Value != want {
			t.Fatalf("records[%d] = %q, want %q (descending)", i, records[i].Value, want)
		}
	}
}

func TestMemoryVersionsAreMonotonicPerKey(t *testing.T) {
	m := NewMemory()
	v0, _ := m.Put("k", "a")
	v1, _ := m.Put("k", "b")
	v2, _ := m.Put("k", "c")
	if !(v0 < v1 && v1 < v2) {
		t.Fatalf("versions should be strictly increasing, got %d %d %d", v0, v1, v2)
	}
}

func TestMemoryGetSinceAndLimit(t *testing.T) {
	m := NewMemory()
	for _, v := range []string{"a", "b", "c", "d"} {
		m.Put("k", v)
	}
	since := 1
	records, _ := m.Get("k", &since, nil)
	if len(records) != 3 {
		t.Fatalf("Get(since=1) should drop version 0, got %d records", len(records))
	}

	limit := 2
	records, _ = m.Get("k", nil, &limit)
	if len(records) != 2 || records[0].Value != "d" {
		t.Fatalf("Get(limit=2) = %v, want latest 2 descending", records)
	}
}

func TestMemoryDeleteTillRemovesOlderVersions(t *testing.T) {
	m := NewMemory()
	for _, v := range []string{"a", "b", "c"} {
		m.Put("k", v)
	}
	till := 2
	if err := m.Delete("k", &till); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, _ := m.Get("k", nil, nil)
	if len(records) != 1 || records[0].Value != "c" {
		t.Fatalf("Delete(till=2) should leave only version 2, got %v", records)
	}
}

func TestMemoryDeleteAllWithNilTill(t *testing.T) {
	m := NewMemory()
	m.Put("k", "a")
	m.Put("k", "b")
	if err := m.Delete("k", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, _ := m.Get("k", nil, nil)
	if len(records) != 0 {
		t.Fatalf("Delete(till=nil) should remove all records, got %v", records)
	}
}

func TestMemoryClearWipesEverything(t *testing.T) {
	m := NewMemory()
	m.Put("k1", "a")
	m.Put("k2", "b")
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, _ := m.Gather()
	if len(entries) != 0 {
		t.Fatalf("Clear should wipe all keys, got %v", entries)
	}
}

func TestMemoryGatherReturnsAllKeys(t *testing.T) {
	m := NewMemory()
	m.Put("k1", "a")
	m.Put("k2", "b")
	entries, err := m.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries across 2 keys, got %d", len(entries))
	}
}
