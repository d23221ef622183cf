package index

import (
	"sync"

	"github.com/commonground/eventfinder/internal/corpus"
)

// Handle memoizes the built index against the corpus version. The index is
// an expensive one-time build; repeated Get calls with an unchanged corpus
// return the cached build, and a corpus rebuild invalidates it lazily.
type Handle struct {
	corpus *corpus.Handle

	mu           sync.Mutex
	idx          *Index
	builtVersion uint64
}

// NewHandle builds the index over the corpus's current contents.
func NewHandle(c *corpus.Handle) *Handle {
	h := &Handle{corpus: c}
	h.Get() // eager first build so startup fails fast, not on first query
	return h
}

// Get returns the index for the current corpus version, rebuilding only when
// the corpus has changed since the last build.
func (h *Handle) Get() *Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	version := h.corpus.Version()
	if h.idx == nil || version != h.builtVersion {
		h.idx = Build(h.corpus.Records())
		h.builtVersion = version
	}
	return h.idx
}
