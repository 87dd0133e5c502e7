// Package book implements the in-memory limit order book: per-price
// FIFO order queues, red-black price indexes for both sides, an order
// id index for O(1) cancellation, and the L1/L2/L3 read views.
//
// A book is owned by exactly one matching worker. Nothing in this
// package synchronizes; callers serialize all access through the
// per-pair command loop. External readers are served from the replica
// package, never from these structures.
package book
