package linearizer

import "github.com/edera-run/workflowd/internal/graph"

// LinearizeNamed topologically orders a NamedGraph's live values,
// parents before children.
func LinearizeNamed[V graph.Named](ng *graph.NamedGraph[V]) ([]V, error) {
	names, err := DFS[string]{}.Linearize(ng.Underlying())
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(names))
	for _, name := range names {
		if v, ok := ng.Get(name); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
