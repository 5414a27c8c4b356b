package model

import "time"

// Document is the normalized, user-facing record of one stored payslip image.
// Documents are never mutated after creation; reconciliation replaces them
// wholesale. Title is the deduplication key: two remote files normalizing to
// the same title collapse to the one with the later CreatedAt. The backend
// assigns a stable ID per file, but dedup deliberately keys on title so that
// re-capturing a payslip for the same period supersedes the stale image.
type Document struct {
	ID           string
	Title        string
	Period       string // "YYYY-MM" month the payslip covers, derived from capture time.
	CreatedAt    time.Time
	ThumbnailURL string
	ViewURL      string
	MimeType     string
}
