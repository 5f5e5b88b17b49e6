// Package linearizer topologically orders a graph, grounded on
// edera/linearizer.py and edera/linearizers/dfs.py.
package linearizer

import (
	"fmt"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Linearizer topologically orders every item of g, parents before
// children, raising CircularDependencyError on a cycle.
type Linearizer[K comparable] interface {
	Linearize(g *graph.Graph[K]) ([]K, error)
}

// DFS is a non-recursive depth-first linearizer, matching
// edera.linearizers.dfs.DFSLinearizer's explicit
// exploring/passing/path/stack bookkeeping.
type DFS[K comparable] struct{}

type frame[K comparable] struct {
	item     K
	explored bool
}

// Linearize implements Linearizer.
func (DFS[K]) Linearize(g *graph.Graph[K]) ([]K, error) {
	items := g.Items()
	passing := make(map[K]struct{})
	done := make(map[K]struct{})
	var path []K
	var out []K

	var visit func(item K) error
	visit = func(item K) error {
		if _, ok := done[item]; ok {
			return nil
		}
		if idx := indexOf(path, item); idx >= 0 {
			return &xerrors.CircularDependencyError{Cycle: stringify(path[idx:])}
		}
		stack := []frame[K]{{item: item}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if !top.explored {
				if _, ok := done[top.item]; ok {
					stack = stack[:len(stack)-1]
					continue
				}
				top.explored = true
				passing[top.item] = struct{}{}
				path = append(path, top.item)
				for _, parent := range g.Parents(top.item) {
					if _, ok := done[parent]; ok {
						continue
					}
					if idx := indexOf(path, parent); idx >= 0 {
						return &xerrors.CircularDependencyError{Cycle: stringify(path[idx:])}
					}
					stack = append(stack, frame[K]{item: parent})
				}
				continue
			}
			out = append(out, top.item)
			done[top.item] = struct{}{}
			delete(passing, top.item)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
		return nil
	}

	for _, item := range items {
		if err := visit(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func indexOf[K comparable](path []K, item K) int {
	for i, p := range path {
		if p == item {
			return i
		}
	}
	return -1
}

func stringify[K comparable](path []K) []string {
	out := make([]string, len(path))
	for i, p := range path {
		out[i] = fmt.Sprintf("%v", p)
	}
	return out
}
