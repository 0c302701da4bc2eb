// Package netpoll implements the relay transport over raw non-blocking
// TCP sockets and select(2), using golang.org/x/sys/unix.
//
// Descriptors are created and owned here instead of going through package net:
// the relay core multiplexes all sockets on one goroutine and needs plain
// descriptors for the readiness wait.
//
// The poller keeps a self-pipe in its read set, so Wake can interrupt
// a blocked Wait from another goroutine (signal handling, shutdown).
//
// Only linux is supported, the select(2) wrapper of x/sys/unix differs between platforms.
package netpoll
