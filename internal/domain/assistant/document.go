// Package assistant answers study questions from a small corpus of notes.
//
// Rank picks the notes whose text overlaps the question; Synthesize turns the
// picked notes into a templated reply. Both are pure functions over data that
// has already been fetched, so concurrent callers need no coordination.
package assistant

// Document is a note as seen by the ranker and the synthesizer.
type Document struct {
	ID          string
	Title       string
	Subject     string
	Body        string // extracted content text, may be empty
	Description string // used when Body is empty
}

// Content returns the body, falling back to the description.
func (d Document) Content() string {
	if d.Body != "" {
		return d.Body
	}
	return d.Description
}

// Reply is the synthesized answer together with the notes it was built from.
type Reply struct {
	Text               string
	RelatedDocumentIDs []string
	Intent             Intent
}
