package domain

import "strconv"

// Document is a single corpus record. IDs are assigned sequentially at load time.
type Document struct {
	ID   int
	Text string
}

// IndexRecord is one vector stored in the index.
// Category is empty in the single-vector pipeline.
type IndexRecord struct {
	ID       string
	Vector   []float32
	Metadata RecordMetadata
}

// RecordMetadata is the payload stored next to a vector.
type RecordMetadata struct {
	DocumentID int
	Text       string
	Category   Category
	// Content holds the extracted category values the vector was computed from.
	Content string
}

// IndexManifest describes how an index was populated, so a later run can
// tell whether the stored records fit its pipeline mode.
type IndexManifest struct {
	Mode       string
	Dimensions int
	Documents  int
}

// Match is a single similarity query hit, ordered as returned by the index.
type Match struct {
	Metadata RecordMetadata
	Score    float64
}

// Candidate is a ranked document.
type Candidate struct {
	DocumentID     int
	AggregateScore float64
	Text           string
}

// RecordID returns the index record identifier for a document's single vector.
func RecordID(documentID int) string {
	return "doc:" + strconv.Itoa(documentID)
}

// CategoryRecordID returns the identifier for one category vector of a document,
// so each category is addressable and scored independently.
func CategoryRecordID(documentID int, c Category) string {
	return RecordID(documentID) + ":" + string(c)
}
