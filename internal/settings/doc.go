// Package settings exposes named, typed firmware parameters to a host daemon.
//
// Ownership boundary:
// - type registry (built-in string/float/int codecs, bool and caller enums)
// - section-grouped settings registry and lookup
// - register-and-await-echo handshake
// - write and read request handlers bound to a transport.Transport
//
// A Settings value is the single owner of all of the above and must be driven
// from one goroutine: the one running the transport loop.
package settings
