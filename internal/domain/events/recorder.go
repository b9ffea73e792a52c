package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Recorder builds well-formed events for one producer (a device or an
// import run). Event IDs are UUIDv7, so they are globally unique and
// sort in creation order, which keeps the (CreatedAt, ID) merge order
// stable even between producers with skewed clocks.
type Recorder struct {
	origin string
	now    func() time.Time
}

func NewRecorder(origin string) *Recorder {
	return &Recorder{
		origin: strings.TrimSpace(origin),
		now:    time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.now = clock
	return r
}

// AddTag records that tag was added to the entry targetID.
func (r *Recorder) AddTag(targetID, tag string) (Event, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Event{}, ErrInvalidInput
	}
	return r.newEvent(TypeAddTag, targetID, TagPayload{Tag: tag})
}

// RemoveTag records that tag was removed from the entry targetID.
func (r *Recorder) RemoveTag(targetID, tag string) (Event, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Event{}, ErrInvalidInput
	}
	return r.newEvent(TypeRemoveTag, targetID, TagPayload{Tag: tag})
}

// Rename records a new display title for the entry targetID.
func (r *Recorder) Rename(targetID, title string) (Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Event{}, ErrInvalidInput
	}
	return r.newEvent(TypeRename, targetID, RenamePayload{Title: title})
}

// Delete records a soft delete of the entry targetID.
func (r *Recorder) Delete(targetID string) (Event, error) {
	return r.newEvent(TypeDelete, targetID, nil)
}

// Restore records that the entry targetID was brought back.
func (r *Recorder) Restore(targetID string) (Event, error) {
	return r.newEvent(TypeRestore, targetID, nil)
}

// SetRating records a star rating for the entry targetID; 0 clears it.
func (r *Recorder) SetRating(targetID string, rating int) (Event, error) {
	if rating < 0 || rating > 5 {
		return Event{}, ErrInvalidInput
	}
	return r.newEvent(TypeSetRating, targetID, RatingPayload{Rating: rating})
}

func (r *Recorder) newEvent(t Type, targetID string, payload any) (Event, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return Event{}, ErrInvalidInput
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, fmt.Errorf("event id: %w", err)
	}

	ev := Event{
		ID:        id.String(),
		Type:      t,
		TargetID:  targetID,
		CreatedAt: r.now().UTC(),
		Origin:    r.origin,
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", t, err)
		}
		ev.Payload = raw
	}

	return ev, nil
}
