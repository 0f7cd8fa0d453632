package hub

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/track"
)

var (
	urlPattern      = regexp.MustCompile(`^https?://`)
	platformPattern = regexp.MustCompile(`^\w+search:`)
)

// rewriteQuery maps a user query onto a node identifier. Direct URLs
// pass through untouched. A "search:" prefix picks up the default
// platform, a bare term gets the full "<platform>search:" prefix, and
// a query that already names a platform is left alone.
func rewriteQuery(query, platform string) string {
	switch {
	case urlPattern.MatchString(query):
		return query
	case strings.HasPrefix(query, "search:"):
		return platform + query
	case platformPattern.MatchString(query):
		return query
	default:
		return platform + "search:" + query
	}
}

// Search resolves a query into tracks on the least-used node and stamps
// each result with the requester.
func (h *Hub) Search(ctx context.Context, query, requester string) (*track.LoadResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Reason: "search query must not be empty"}
	}

	n, err := h.LeastUsed()
	if err != nil {
		return nil, err
	}

	result, err := n.LoadTracks(ctx, rewriteQuery(query, h.cfg.DefaultSearchPlatform))
	if err != nil {
		return nil, err
	}
	for _, tr := range result.Tracks {
		tr.Requester = requester
	}
	return result, nil
}

// DecodeTrack expands an encoded track blob into its metadata via the
// least-used node.
func (h *Hub) DecodeTrack(ctx context.Context, encoded string) (*track.Track, error) {
	if encoded == "" {
		return nil, &ValidationError{Reason: "encoded track must not be empty"}
	}

	n, err := h.LeastUsed()
	if err != nil {
		return nil, err
	}

	tr, err := n.DecodeTrack(ctx, encoded)
	if err != nil {
		if errors.Is(err, node.ErrNotFound) {
			return nil, &NotFoundError{Kind: "track", Key: encoded}
		}
		return nil, err
	}
	return tr, nil
}
