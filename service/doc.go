// Package service orchestrates the core components of the matching
// system: order books, engines, WAL, snapshots, and the event outbox.
//
// Each trading pair is owned by exactly one worker goroutine. Every
// mutation, including snapshots, flows through that worker's command
// channel, so the book is quiesced by construction whenever a command
// runs. Reads never touch a worker; they go through the replica.
package service
