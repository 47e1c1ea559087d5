// Package logger records execution events as newline delimited JSON so runs
// of the shell can be audited and summarized.
//
// Each entry is a google.protobuf.Struct rendered with protojson. Every entry
// has a "kind", a "session_id" and a "timestamp_micros"; the remaining
// fields depend on the kind.
package logger
