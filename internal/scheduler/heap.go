package scheduler

import "container/heap"

type planIndices []int

func (q planIndices) Len() int           { return len(q) }
func (q planIndices) Less(i, j int) bool { return q[i] < q[j] }
func (q planIndices) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *planIndices) Push(x any)        { *q = append(*q, x.(int)) }
func (q *planIndices) Pop() any {
	old := *q
	v := old[len(old)-1]
	*q = old[:len(old)-1]
	return v
}

// readyQueue hands out ready plan indices lowest first.
type readyQueue struct {
	items planIndices
}

func (q *readyQueue) len() int { return q.items.Len() }

func (q *readyQueue) push(v int) { heap.Push(&q.items, v) }

func (q *readyQueue) pop() int { return heap.Pop(&q.items).(int) }
