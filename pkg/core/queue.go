package core

import "math"

type queueEntry struct {
	node  Node
	level int
}

// queue groups scheduled nodes by level and hands them out one minimum-level
// batch at a time. A node promoted to a higher level mid-pulse is pushed
// again at its new level instead of being processed in the current batch.
type queue struct {
	data  []queueEntry
	next  []Node
	level int
}

func (q *queue) push(n Node, level int) {
	q.data = append(q.data, queueEntry{node: n, level: level})
}

// fetchNext moves every entry with the smallest level into the next batch
// and reports whether the batch is non-empty.
func (q *queue) fetchNext() bool {
	q.next = q.next[:0]

	minLevel := math.MaxInt
	for _, e := range q.data {
		if e.level < minLevel {
			minLevel = e.level
		}
	}

	kept := q.data[:0]
	for _, e := range q.data {
		if e.level == minLevel {
			q.next = append(q.next, e.node)
		} else {
			kept = append(kept, e)
		}
	}
	clear(q.data[len(kept):])
	q.data = kept
	q.level = minLevel

	return len(q.next) > 0
}

// batch returns the nodes selected by the last fetchNext
func (q *queue) batch() []Node {
	return q.next
}

// batchLevel returns the level the last batch was scheduled at
func (q *queue) batchLevel() int {
	return q.level
}

func (q *queue) len() int {
	return len(q.data)
}

// reset drops every scheduled node and clears its queued flag
func (q *queue) reset() {
	for _, e := range q.data {
		e.node.Base().queued = false
	}
	for _, n := range q.next {
		n.Base().queued = false
	}
	clear(q.data)
	clear(q.next)
	q.data = q.data[:0]
	q.next = q.next[:0]
}
