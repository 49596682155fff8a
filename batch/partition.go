package batch

// Partition splits items into contiguous batches of at most size elements,
// preserving order. The last batch may be shorter. A size below 1 is treated
// as 1. Batches share the backing array of items.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size = max(size, 1)

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
