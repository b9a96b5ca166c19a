package mapreduce

import (
	"container/heap"

	"WordCount/internal/types"
)

// item is the head of one sorted partition.
type item struct {
	kv    types.Emission
	part  int
	index int
}

// priorityQueue implements heap.Interface as a min-heap on keys.
type priorityQueue []item

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].kv.Key < pq[j].kv.Key }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(item))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[0 : n-1]
	return it
}

// merge combines individually sorted partitions into one sorted stream.
func merge(parts [][]types.Emission, total int) []types.Emission {
	out := make([]types.Emission, 0, total)

	pq := make(priorityQueue, 0, len(parts))
	for p, part := range parts {
		if len(part) > 0 {
			pq = append(pq, item{kv: part[0], part: p, index: 0})
		}
	}
	heap.Init(&pq)

	for pq.Len() > 0 {
		head := pq[0]
		out = append(out, head.kv)

		next := head.index + 1
		if next < len(parts[head.part]) {
			pq[0] = item{kv: parts[head.part][next], part: head.part, index: next}
			heap.Fix(&pq, 0)
		} else {
			heap.Pop(&pq)
		}
	}
	return out
}
