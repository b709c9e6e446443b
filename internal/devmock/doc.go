// Package devmock is an in-memory keyboard used in tests and the
// CLI's mock mode. It implements transport.Conn, speaks both raw
// configuration reports and the shared-endpoint multiplexer framing,
// and keeps its feature tables, stored selections and layer state in
// memory.
package devmock
