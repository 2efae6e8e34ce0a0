package fleet

import "context"

// Prober opens a live, verified connection to one host. Implementations make
// exactly one attempt and report every failure as a *ProbeError.
type Prober interface {
	Probe(ctx context.Context, host string) (Session, error)
}

// Session is a live connection owned by a single host task. The two listing
// methods are the logical introspection queries the scanner correlates.
type Session interface {
	// Columns lists every auto-increment column of the host.
	Columns(ctx context.Context) ([]ColumnMeta, error)
	// Counters lists the current counter and row estimate of every table
	// (or sequence-backed column) that may own such a column.
	Counters(ctx context.Context) ([]TableCounter, error)
	Close() error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, host string) (Session, error)

func (f ProberFunc) Probe(ctx context.Context, host string) (Session, error) {
	return f(ctx, host)
}
