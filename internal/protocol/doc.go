// Package protocol owns the settings wire contract and parsing primitives.
//
// Ownership boundary:
// - message type and sender identifiers
// - bounded NUL-delimited payload writer
// - strict tokenization of inbound write and read-request payloads
package protocol
