// Package dispatcher owns the worker table and the pending parameter sets. A
// single goroutine adopts accepted connections, assigns work to idle workers,
// polls running ones with bounded reads and routes every outcome until all
// parameter sets are accounted for.
package dispatcher
