package hnsw

// candidate pairs a vertex id with its distance to the query/base vector
// currently driving a search or selection.
type candidate struct {
	id   uint32
	dist float32
}

// minCandHeap is the candidate frontier C of search_layer (spec §4.5):
// popping always returns the closest unexplored candidate.
type minCandHeap []candidate

func (h minCandHeap) Len() int { return len(h) }
func (h minCandHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].id < h[j].id
}
func (h minCandHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minCandHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minCandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxCandHeap is the result set W of search_layer: popping returns the
// farthest kept candidate, so the beam can evict it once W is full.
type maxCandHeap []candidate

func (h maxCandHeap) Len() int { return len(h) }
func (h maxCandHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].id > h[j].id
}
func (h maxCandHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxCandHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxCandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
