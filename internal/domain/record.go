package domain

// Row is one flat market record produced by a collector. Every row in a
// batch destined for the same table must carry an identical key set; the
// store stamps date and timestamp on top at save time.
type Row map[string]any

// Dataset couples a strategy table with the rows a collector produced for it.
// Most collectors emit a single dataset; the convertible-bond monitor emits
// two from one fetch.
type Dataset struct {
	Table string
	Rows  []Row
}
