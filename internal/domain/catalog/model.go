package catalog

import (
	"sort"
	"time"
)

// FileRef describes one media file belonging to an entry. Entries keep
// an ordered list of these; the import pipeline owns their content and
// order (e.g. RAW+JPEG pairs, burst groups).
type FileRef struct {
	Path  string    `json:"path"`
	Size  int64     `json:"size"`
	MTime time.Time `json:"mtime"`
}

// Entry is one catalog record, a taggable piece of media. Its ID is
// content-derived, assigned at import, and never changes. Everything
// the user can change about it arrives through replayed events; the
// applier is the sole mutator of Tags, Title, Rating, Deleted,
// Updated, AppliedEventIDs and Hash.
//
// AppliedEventIDs only ever grows: it is the bookkeeping that makes
// replay idempotent. Hash is a pure function of every field except
// Hash and AppliedEventIDs themselves.
type Entry struct {
	ID              string    `json:"id"`
	Title           string    `json:"title,omitempty"`
	Rating          int       `json:"rating,omitempty"`
	Deleted         bool      `json:"deleted,omitempty"`
	Updated         time.Time `json:"updated"`
	Tags            []string  `json:"tags"`
	AppliedEventIDs []string  `json:"appliedEventIds"`
	Files           []FileRef `json:"files"`
	Hash            string    `json:"hash,omitempty"`
}

// NewEntry builds a fresh entry for the import pipeline. Tags and
// bookkeeping start empty; the first replay fills them in.
func NewEntry(id string, files []FileRef) *Entry {
	return &Entry{
		ID:              id,
		Tags:            []string{},
		AppliedEventIDs: []string{},
		Files:           files,
	}
}

// Clone returns a deep copy; stores hand out clones so callers never
// share slices with the persisted state.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	c.AppliedEventIDs = append([]string(nil), e.AppliedEventIDs...)
	c.Files = append([]FileRef(nil), e.Files...)
	return &c
}

// HasApplied reports whether the event already took effect on this
// entry.
func (e *Entry) HasApplied(eventID string) bool {
	for _, id := range e.AppliedEventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is in the entry's tag set. Lookups scan:
// this code keeps Tags sorted, but snapshots written by other tools
// may arrive in any order.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// addTag inserts tag keeping Tags sorted and duplicate-free; the tag
// list is a set, and a sorted one replays to the same bytes on every
// device.
func (e *Entry) addTag(tag string) {
	if e.HasTag(tag) {
		return
	}
	e.Tags = append(e.Tags, tag)
	sort.Strings(e.Tags)
}

func (e *Entry) removeTag(tag string) {
	for i, t := range e.Tags {
		if t == tag {
			e.Tags = append(e.Tags[:i], e.Tags[i+1:]...)
			return
		}
	}
}

// Database is the snapshot events replay against: entries keyed by ID.
type Database map[string]*Entry
