package builder

import "container/heap"

// indices implements heap.Interface over declaration indices.
type indices []int

func (h indices) Len() int           { return len(h) }
func (h indices) Less(i, j int) bool { return h[i] < h[j] }
func (h indices) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indices) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indices) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]
	return v
}

// intMinHeap pops the lowest declaration index first.
type intMinHeap struct {
	items indices
}

func (h *intMinHeap) len() int { return h.items.Len() }

func (h *intMinHeap) push(v int) { heap.Push(&h.items, v) }

func (h *intMinHeap) pop() int { return heap.Pop(&h.items).(int) }
