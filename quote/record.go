// Package quote implements the quote database core: the durable quote store,
// the command router, the target resolver, and the argument aggregator that
// together turn free-form chat commands into operations on attributed quotes.
package quote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the durable unit of the quote database. Optional fields are
// pointers so that absence round-trips through the document as null rather
// than as an empty string. Struct order fixes field order in the serialized
// document, keeping rewrites diffable.
type Record struct {
	ID              string  `json:"id"`
	SpeakerName     *string `json:"speakerName"`
	SpeakerID       *string `json:"speakerId"`
	Text            *string `json:"quoteText"`
	ScribeName      *string `json:"scribeName"`
	ScribeID        *string `json:"scribeId"`
	RecordedAt      *string `json:"recordedAt"`
	StreamTimestamp *string `json:"streamTimestamp"`
	CategoryName    *string `json:"categoryName"`
	CategoryID      *string `json:"categoryId"`
	StreamTitle     *string `json:"streamTitle"`
	SourcePlatform  *string `json:"sourcePlatform"`
	// Hidden is omitted when false so documents written before the hide
	// feature existed re-serialize byte-identically.
	Hidden bool `json:"hidden,omitempty"`
}

// decodeDocument parses a stored document into an ordered record sequence.
// A missing or empty document is an empty sequence, never an error.
func decodeDocument(body []byte) ([]Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode quote document: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// encodeDocument serializes the record sequence as an indented JSON array,
// matching the on-disk format expected by external tooling.
func encodeDocument(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode quote document: %w", err)
	}
	return body, nil
}

// Latest returns the record with the numerically greatest id, or nil for an
// empty sequence. Comparison is numeric, not lexicographic ("9" < "10").
// Records whose id does not parse are skipped.
func Latest(records []Record) *Record {
	var latest *Record
	best := -1
	for i := range records {
		n, err := strconv.Atoi(records[i].ID)
		if err != nil {
			continue
		}
		if n > best {
			best = n
			latest = &records[i]
		}
	}
	return latest
}

// optional converts an aggregated string value into a nullable field: empty
// means the upstream source did not have it.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
