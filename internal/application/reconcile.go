package application

import (
	"sort"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// placeholderTitle replaces an empty remote file name during normalization so
// a nameless document still shows up and participates in dedup.
const placeholderTitle = "Untitled payslip"

// Reconcile turns normalized remote documents into the authoritative local
// list: empty titles get a placeholder, duplicate titles collapse to the
// entry with the later CreatedAt, and the result is sorted by CreatedAt
// descending. Dedup keys on title, not remote id: re-capturing a payslip for
// the same period must supersede the stale image, and the backend's
// eventually-consistent listings can repeat entries.
//
// Pure function: no I/O, deterministic given its input.
func Reconcile(docs []model.Document) []model.Document {
	byTitle := make(map[string]model.Document, len(docs))
	for _, d := range docs {
		if d.Title == "" {
			d.Title = placeholderTitle
		}
		if cur, ok := byTitle[d.Title]; ok && !d.CreatedAt.After(cur.CreatedAt) {
			continue
		}
		byTitle[d.Title] = d
	}

	out := make([]model.Document, 0, len(byTitle))
	for _, d := range byTitle {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		// Tie-break on title so equal timestamps still order deterministically.
		return out[i].Title < out[j].Title
	})

	return out
}
