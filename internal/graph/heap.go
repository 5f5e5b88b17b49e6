package graph

// Heap is a stable max-heap: among equal priorities, items pushed
// earlier are popped first. It backs the workflow Builder's pending
// requisitor/requisite requests and the Queue's rank ordering, grounded
// on edera.heap.Heap.
type Heap[V any] struct {
	items []heapItem[V]
	seq   int
}

type heapItem[V any] struct {
	priority float64
	seq      int
	value    V
}

// NewHeap returns an empty Heap.
func NewHeap[V any]() *Heap[V] { return &Heap[V]{} }

// Len reports the number of items in the heap.
func (h *Heap[V]) Len() int { return len(h.items) }

// Push inserts value with the given priority.
func (h *Heap[V]) Push(priority float64, value V) {
	h.items = append(h.items, heapItem[V]{priority: priority, seq: h.seq, value: value})
	h.seq++
	h.up(len(h.items) - 1)
}

// Peek returns the top item without removing it.
func (h *Heap[V]) Peek() (V, float64, bool) {
	if len(h.items) == 0 {
		var zero V
		return zero, 0, false
	}
	top := h.items[0]
	return top.value, top.priority, true
}

// Pop removes and returns the top item.
func (h *Heap[V]) Pop() (V, float64, bool) {
	if len(h.items) == 0 {
		var zero V
		return zero, 0, false
	}
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.down(0)
	}
	return top.value, top.priority, true
}

func (h *Heap[V]) greater(i, j int) bool {
	if h.items[i].priority != h.items[j].priority {
		return h.items[i].priority > h.items[j].priority
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *Heap[V]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.greater(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[V]) down(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < n && h.greater(left, largest) {
			largest = left
		}
		if right < n && h.greater(right, largest) {
			largest = right
		}
		if largest == i {
			break
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}
