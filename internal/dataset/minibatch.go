package dataset

import "gonum.org/v1/gonum/mat"

// Batch is a contiguous view into a Set. It shares storage with the Set.
type Batch struct {
	Index  int
	Images *mat.Dense
	Labels *mat.Dense
}

// Minibatches splits set into contiguous chunks of size rows, in order.
// The final chunk is shorter when size does not divide the set.
func Minibatches(set Set, size int) []Batch {
	n := set.Len()
	if n == 0 || size <= 0 {
		return nil
	}
	_, xc := set.Images.Dims()
	_, yc := set.Labels.Dims()
	batches := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, Batch{
			Index:  len(batches),
			Images: set.Images.Slice(start, end, 0, xc).(*mat.Dense),
			Labels: set.Labels.Slice(start, end, 0, yc).(*mat.Dense),
		})
	}
	return batches
}
