package processors

import (
	"hash/crc32"
	"sort"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/linearizer"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// WorkflowTrimmer prunes a normalized task graph using task targets: if
// a task is complete then its ancestors are assumed complete too, and if
// a task is incomplete then its descendants are assumed incomplete too.
// Grounded on
// original_source/edera/workflow/processors/workflow_trimmer.py, a
// repeated max-volume candidate-cutting pass over an ancestor/descendant
// signature annotation it maintains on a shadow int-indexed Graph.
//
// Only correct on a normalized workflow: run WorkflowNormalizer first.
type WorkflowTrimmer struct{}

type trimAnnotation struct {
	as *int
	ac int
	ds *int
	dc int
	v  int
}

func (WorkflowTrimmer) Process(w *workflow.Workflow) error {
	tasks, err := linearizer.LinearizeNamed(w.Graph)
	if err != nil {
		return err
	}
	hashes := make([]uint32, len(tasks))
	indices := make(map[string]int, len(tasks))
	for i, t := range tasks {
		hashes[i] = crc32.ChecksumIEEE([]byte(t.Name()))
		indices[t.Name()] = i
	}

	candidates := graph.New[int]()
	linearization := make([]int, len(tasks))
	for i := range tasks {
		linearization[i] = i
		candidates.Add(i)
	}
	for _, index := range linearization {
		for _, parent := range w.Graph.Parents(tasks[index]) {
			candidates.Link(indices[parent.Name()], index)
		}
	}

	annotations := make(map[int]*trimAnnotation, len(tasks))
	for _, i := range linearization {
		annotations[i] = &trimAnnotation{}
	}

	for {
		propagateTrimSignatures(candidates, linearization, annotations, hashes, false)
		propagateTrimSignatures(candidates, linearization, annotations, hashes, true)
		for _, index := range linearization {
			a := annotations[index]
			a.v = a.ac*a.dc + maxInt(a.ac, a.dc)
		}

		victims := append([]int(nil), linearization...)
		sort.SliceStable(victims, func(i, j int) bool {
			return annotations[victims[i]].v > annotations[victims[j]].v
		})

		black := map[int]struct{}{}
		white := map[int]struct{}{}
		for _, victim := range victims {
			a := annotations[victim]
			if a.v < 3 {
				break
			}
			target := tasks[victim].Target()
			_, isBlack := black[victim]
			_, isWhite := white[victim]
			asBlack := a.as != nil && setHas(black, *a.as)
			dsWhite := a.ds != nil && setHas(white, *a.ds)
			if target == nil || isBlack || isWhite || asBlack || dsWhite {
				continue
			}
			completed, checkErr := target.Check()
			if checkErr != nil {
				continue
			}
			if completed {
				black[victim] = struct{}{}
				for _, ancestor := range candidates.Trace(victim, "A") {
					black[ancestor] = struct{}{}
				}
			} else {
				white[victim] = struct{}{}
				for _, descendant := range candidates.Trace(victim, "D") {
					white[descendant] = struct{}{}
				}
			}
		}
		if len(black) == 0 && len(white) == 0 {
			break
		}

		removed := make([]int, 0, len(black)+len(white))
		for i := range black {
			removed = append(removed, i)
		}
		for i := range white {
			removed = append(removed, i)
		}
		candidates.Remove(removed...)

		kept := linearization[:0:0]
		for _, i := range linearization {
			if candidates.Has(i) {
				kept = append(kept, i)
			}
		}
		linearization = kept

		var deadTasks []task.Task
		for i := range black {
			deadTasks = append(deadTasks, tasks[i])
		}
		w.Graph.Remove(deadTasks...)
	}
	return nil
}

// propagateTrimSignatures fills in the ancestor ("A") or descendant
// ("D") signature/count pair for every surviving candidate, walking the
// linearization forwards for ancestors and backwards for descendants.
func propagateTrimSignatures(candidates *graph.Graph[int], linearization []int, annotations map[int]*trimAnnotation, hashes []uint32, descendant bool) {
	order := linearization
	if descendant {
		order = make([]int, len(linearization))
		for i, v := range linearization {
			order[len(linearization)-1-i] = v
		}
	}
	for _, index := range order {
		var neighbors []int
		if descendant {
			neighbors = candidates.Children(index)
		} else {
			neighbors = candidates.Parents(index)
		}
		a := annotations[index]
		if len(neighbors) == 0 {
			if descendant {
				a.ds, a.dc = nil, 0
			} else {
				a.as, a.ac = nil, 0
			}
			continue
		}
		counters := map[int]int{}
		signatures := map[int]struct{}{}
		for _, n := range neighbors {
			signatures[n] = struct{}{}
			na := annotations[n]
			sig, count := na.as, na.ac
			if descendant {
				sig, count = na.ds, na.dc
			}
			if sig == nil {
				continue
			}
			if count > counters[*sig] {
				counters[*sig] = count
			}
		}
		for sig := range counters {
			signatures[sig] = struct{}{}
		}
		signature := minByHash(signatures, hashes)
		sum := 0
		for _, c := range counters {
			sum += c
		}
		count := len(neighbors) + sum
		if descendant {
			a.ds, a.dc = signature, count
		} else {
			a.as, a.ac = signature, count
		}
	}
}

func minByHash(candidates map[int]struct{}, hashes []uint32) *int {
	if len(candidates) == 0 {
		return nil
	}
	best := -1
	for c := range candidates {
		if best == -1 || hashes[c] < hashes[best] {
			best = c
		}
	}
	return &best
}

func setHas(set map[int]struct{}, v int) bool {
	_, ok := set[v]
	return ok
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
