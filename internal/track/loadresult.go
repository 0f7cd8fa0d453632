package track

// LoadType classifies the outcome of a node load request.
type LoadType string

const (
	LoadTypeTrack     LoadType = "TRACK_LOADED"
	LoadTypePlaylist  LoadType = "PLAYLIST_LOADED"
	LoadTypeSearch    LoadType = "SEARCH_RESULT"
	LoadTypeNoMatches LoadType = "NO_MATCHES"
	LoadTypeFailed    LoadType = "LOAD_FAILED"
)

// PlaylistInfo describes the playlist a load result came from, if any.
type PlaylistInfo struct {
	Name          string `json:"name"`
	SelectedTrack int    `json:"selectedTrack"`
}

// Exception is a failure a node reports for a specific track.
type Exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

var _ error = (*Exception)(nil)

func (e *Exception) Error() string {
	return e.Message
}

// LoadResult is a node's answer to a load or search request.
type LoadResult struct {
	LoadType     LoadType     `json:"loadType"`
	PlaylistInfo PlaylistInfo `json:"playlistInfo"`
	Tracks       []*Track     `json:"tracks"`
	Exception    *Exception   `json:"exception,omitempty"`
}

// First returns the first loaded track, or nil when the result is empty.
func (r *LoadResult) First() *Track {
	if len(r.Tracks) == 0 {
		return nil
	}
	return r.Tracks[0]
}
