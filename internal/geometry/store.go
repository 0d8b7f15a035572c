package geometry

import "math"

// PageGeometry is the rendered size of a page after its last paint.
type PageGeometry struct {
	Width  float64
	Height float64
}

// Store tracks the last reported rendered size for each page (1-based).
type Store struct {
	pages map[int]PageGeometry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{pages: map[int]PageGeometry{}}
}

// Record overwrites the geometry for page. Degenerate sizes reported while a
// page reflows are ignored and Record reports false.
func (s *Store) Record(page int, width, height float64) bool {
	if page < 1 || !positive(width) || !positive(height) {
		return false
	}
	if s.pages == nil {
		s.pages = map[int]PageGeometry{}
	}
	s.pages[page] = PageGeometry{Width: width, Height: height}
	return true
}

// Get returns the geometry recorded for page, if any.
func (s *Store) Get(page int) (PageGeometry, bool) {
	g, ok := s.pages[page]
	return g, ok
}

// Len reports how many pages have been painted at least once.
func (s *Store) Len() int {
	return len(s.pages)
}

// Reset drops every entry. Only a document replacement should call it.
func (s *Store) Reset() {
	s.pages = map[int]PageGeometry{}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
