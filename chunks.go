package flense

import (
	"sort"
	"strings"
	"sync"
)

// ContentAssembler collects content chunks arriving in completion order
// and reassembles them by page number. Safe for use from a subscription
// callback while another goroutine reads the assembled output.
type ContentAssembler struct {
	mu    sync.Mutex
	pages map[int]string
}

func NewContentAssembler() *ContentAssembler {
	return &ContentAssembler{pages: make(map[int]string)}
}

// Add records one chunk. A chunk for an already-seen page replaces the
// earlier text; the server may re-emit a page after a retry.
func (a *ContentAssembler) Add(chunk *ContentChunk) {
	if chunk == nil {
		return
	}
	a.mu.Lock()
	a.pages[chunk.Page] = chunk.Text()
	a.mu.Unlock()
}

// Len returns the number of distinct pages collected so far.
func (a *ContentAssembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}

// PageNumbers returns the collected page numbers in ascending order.
func (a *ContentAssembler) PageNumbers() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sortedPagesLocked()
}

// Markdown returns the page-ordered document, pages joined by a blank
// line.
func (a *ContentAssembler) Markdown() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	numbers := a.sortedPagesLocked()
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, a.pages[n])
	}
	return strings.Join(parts, "\n\n")
}

func (a *ContentAssembler) sortedPagesLocked() []int {
	numbers := make([]int, 0, len(a.pages))
	for n := range a.pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
