package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/gowebpki/jcs"
)

// hashView is the entry as the hasher sees it: every field except Hash
// and AppliedEventIDs. Two entries with the same observable fields
// hash identically no matter which event history produced them, which
// is what lets consumers tell a content change from bookkeeping churn.
type hashView struct {
	ID      string    `json:"id"`
	Title   string    `json:"title,omitempty"`
	Rating  int       `json:"rating,omitempty"`
	Deleted bool      `json:"deleted,omitempty"`
	Updated time.Time `json:"updated"`
	Tags    []string  `json:"tags"`
	Files   []FileRef `json:"files"`
}

// ComputeHash derives the entry's content digest: the hash view is
// serialized, canonicalized per RFC 8785 and digested with SHA-256.
// Tags are sorted as a set; file order is meaningful and kept.
func ComputeHash(e *Entry) (string, error) {
	tags := make([]string, 0, len(e.Tags))
	tags = append(tags, e.Tags...)
	sort.Strings(tags)

	files := e.Files
	if files == nil {
		files = []FileRef{}
	}

	raw, err := json.Marshal(hashView{
		ID:      e.ID,
		Title:   e.Title,
		Rating:  e.Rating,
		Deleted: e.Deleted,
		Updated: e.Updated,
		Tags:    tags,
		Files:   files,
	})
	if err != nil {
		return "", fmt.Errorf("hash entry %s: encode: %w", e.ID, err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("hash entry %s: canonicalize: %w", e.ID, err)
	}

	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
