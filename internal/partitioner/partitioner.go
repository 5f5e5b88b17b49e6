// Package partitioner splits a set of items into non-conflicting
// subsets, grounded on original_source/edera/partitioner.py and
// edera/partitioners/greedy.py. Two items conflict if their associated
// mappings disagree on the value for some shared key; WorkflowTestifier
// uses this to group tests/stubs so that conflicting substitutions never
// land in the same environment.
package partitioner

import (
	"cmp"
	"sort"
)

// Partition is a maximal conflict-free group: Items is the set of keys
// assigned to it, Mapping is their merged (non-conflicting) mapping.
type Partition[K cmp.Ordered, V comparable] struct {
	Items   []K
	Mapping map[K]V
}

// Partitioner splits items (a key -> its own key/value mapping
// collection) into Partitions.
type Partitioner[K cmp.Ordered, V comparable] interface {
	Partition(items map[K]map[K]V) []Partition[K, V]
}

// Mergeable reports whether the given mappings can be merged without
// conflict: no shared key maps to two different values across them.
func Mergeable[K cmp.Ordered, V comparable](mappings ...map[K]V) bool {
	merge := map[K]V{}
	for _, mapping := range mappings {
		probe := mapping
		if len(merge) < len(mapping) {
			probe = merge
		}
		for key := range probe {
			mv, inMerge := merge[key]
			pv, inMapping := mapping[key]
			if inMerge && inMapping && mv != pv {
				return false
			}
		}
		for k, v := range mapping {
			merge[k] = v
		}
	}
	return true
}

// Greedy partitions items using greedy coloring, similar in spirit to
// Welsh-Powell: items with the largest mapping go first, each joining
// the first partition it can merge into without conflict.
type Greedy[K cmp.Ordered, V comparable] struct{}

func (Greedy[K, V]) Partition(items map[K]map[K]V) []Partition[K, V] {
	keys := make([]K, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := len(items[keys[i]]), len(items[keys[j]])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})

	var partitions []Partition[K, V]
	for _, item := range keys {
		mapping := items[item]
		placed := false
		for i := range partitions {
			if Mergeable(mapping, partitions[i].Mapping) {
				partitions[i].Items = append(partitions[i].Items, item)
				for k, v := range mapping {
					partitions[i].Mapping[k] = v
				}
				placed = true
				break
			}
		}
		if !placed {
			merged := make(map[K]V, len(mapping))
			for k, v := range mapping {
				merged[k] = v
			}
			partitions = append(partitions, Partition[K, V]{Items: []K{item}, Mapping: merged})
		}
	}
	return partitions
}
