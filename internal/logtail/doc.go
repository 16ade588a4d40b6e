// Package logtail reads the tail of arbor's session log for display.
//
// Read keeps a ring buffer of the last maxLines matching records, so the whole
// file is scanned once without being held in memory. Records are filtered by
// the level attribute slog's text handler writes (level=INFO, level=WARN, ...);
// lines without one are treated as continuations of the previous record.
package logtail
