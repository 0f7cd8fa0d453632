// Package track holds the track data model shared by nodes, players,
// and event payloads.
package track

// Info is the metadata a node reports for a resolved track.
// Length and Position are in milliseconds.
type Info struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	URI        string `json:"uri"`
	SourceName string `json:"sourceName"`
	Length     int64  `json:"length"`
	Position   int64  `json:"position"`
	IsSeekable bool   `json:"isSeekable"`
	IsStream   bool   `json:"isStream"`
}

// Track pairs a node's opaque encoded form with its metadata.
// The encoded form is what gets sent back to a node to play the track;
// the hub never interprets it.
type Track struct {
	Encoded   string `json:"track"`
	Info      Info   `json:"info"`
	Requester string `json:"-"`
}

// Unresolved returns a track that carries only search criteria. The
// title holds the query until a node resolves it into an encoded form.
func Unresolved(query, requester string) *Track {
	return &Track{
		Info:      Info{Title: query},
		Requester: requester,
	}
}

// Resolved reports whether a node has produced the encoded form.
func (t *Track) Resolved() bool {
	return t.Encoded != ""
}
