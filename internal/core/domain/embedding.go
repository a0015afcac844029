package domain

// EmbedReport maps every input item to its outcome. Vectors[i] corresponds
// to input i regardless of which batch produced it; a failed item has a nil
// vector and a non-nil Errs[i].
type EmbedReport struct {
	Vectors [][]float32
	Errs    []error
	Model   string
}

func (r EmbedReport) FailedCount() int {
	n := 0
	for _, err := range r.Errs {
		if err != nil {
			n++
		}
	}
	return n
}

// FirstErr returns the lowest-index item error, or nil if all items succeeded.
func (r EmbedReport) FirstErr() error {
	for _, err := range r.Errs {
		if err != nil {
			return err
		}
	}
	return nil
}
