package domain

// Extraction is the pure output of parsing one PDF byte stream.
//
// Invariants: section ordinals are contiguous from 0 and page ranges are
// non-decreasing across ordinals.
type Extraction struct {
	Sections  []Section
	PageCount int
	Metadata  DocumentMetadata
}
