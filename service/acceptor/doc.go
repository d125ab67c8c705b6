// Package acceptor accepts worker connections and hands them to the
// dispatcher through a queue.
package acceptor
