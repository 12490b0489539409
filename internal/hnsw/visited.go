package hnsw

// visitedScratch is a per-worker (thread-local, in spec terms) tag-stamped
// "visited this call" set over vertex ids. Instead of clearing an N-sized
// array before every search_layer call, it advances a monotonically
// increasing tag; a vertex is "visited" iff its stamp equals the current
// tag. When the tag wraps to zero, the backing array is zeroed and the tag
// restarts at 1 (spec §5, §9).
type visitedScratch struct {
	tags []uint32
	tag  uint32
}

func newVisitedScratch(n int) *visitedScratch {
	return &visitedScratch{
		tags: make([]uint32, n),
		tag:  1,
	}
}

// reset starts a new logical "visited" epoch, reusing the backing array.
func (v *visitedScratch) reset() {
	v.tag++
	if v.tag == 0 {
		for i := range v.tags {
			v.tags[i] = 0
		}
		v.tag = 1
	}
}

// ensureSize extends the scratch to cover at least n vertex ids, used the
// first time a worker touches an index whose vector store has grown since
// the scratch was allocated.
func (v *visitedScratch) ensureSize(n int) {
	if len(v.tags) >= n {
		return
	}
	grown := make([]uint32, n)
	copy(grown, v.tags)
	v.tags = grown
}

func (v *visitedScratch) visited(id uint32) bool {
	return v.tags[id] == v.tag
}

func (v *visitedScratch) visit(id uint32) {
	v.tags[id] = v.tag
}
