package events

// Payload shapes, one per event type that carries data. delete and
// restore events have no payload.

// TagPayload accompanies addTag and removeTag events.
type TagPayload struct {
	Tag string `json:"tag"`
}

// RenamePayload carries the display title set by a rename event.
type RenamePayload struct {
	Title string `json:"title"`
}

// RatingPayload carries the star value set by a setRating event.
// Valid ratings are 0 through 5; 0 clears the rating.
type RatingPayload struct {
	Rating int `json:"rating"`
}
