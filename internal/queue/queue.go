package queue

// AgeItem is a slot tagged with the sequence number of its assignment.
type AgeItem struct {
	Slot int
	Seq  uint64
}

// AgeQueue is a binary min-heap over assignment sequence numbers.
// The top is the oldest entry. Not safe for concurrent use.
type AgeQueue struct {
	items []AgeItem // value-based storage, no pointer indirection
}

// NewAge initializes an empty queue with the given capacity hint.
func NewAge(capacity int) *AgeQueue {
	return &AgeQueue{
		items: make([]AgeItem, 0, capacity),
	}
}

// Len returns the number of entries.
func (q *AgeQueue) Len() int { return len(q.items) }

// TopItem returns the oldest entry without removing it.
func (q *AgeQueue) TopItem() (AgeItem, bool) {
	if len(q.items) == 0 {
		return AgeItem{}, false
	}
	return q.items[0], true
}

// PushItem inserts an entry while maintaining the heap invariant.
func (q *AgeQueue) PushItem(item AgeItem) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

// PopItem removes and returns the oldest entry.
func (q *AgeQueue) PopItem() (AgeItem, bool) {
	n := len(q.items)
	if n == 0 {
		return AgeItem{}, false
	}
	root := q.items[0]
	last := q.items[n-1]
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root, true
}

// Reset clears the queue for reuse.
func (q *AgeQueue) Reset() {
	q.items = q.items[:0]
}

func (q *AgeQueue) less(i, j int) bool {
	return q.items[i].Seq < q.items[j].Seq
}

func (q *AgeQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *AgeQueue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
