// Package store holds the in-memory table of users and their heart-rate
// readings.
//
// The main components are:
//
//   - [Store]: Interface defining submission, query and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [User]: A named user with a bounded reading history
//   - [Reading]: A single heart-rate value and its timestamp
//
// State is volatile: nothing is written to disk and everything is lost when
// the process exits. Users are created on their first reading and never
// removed.
//
// Subscribers receive every recorded reading via channels with non-blocking
// sends (slow subscribers miss readings rather than block submissions).
package store
