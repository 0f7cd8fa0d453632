package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/glizzus/encore/internal/track"
)

// LoadTracks asks the node to resolve an identifier (a URL or a
// "<platform>search:" query) into playable tracks.
func (n *Node) LoadTracks(ctx context.Context, identifier string) (*track.LoadResult, error) {
	endpoint := n.restURL("/loadtracks?identifier=" + url.QueryEscape(identifier))

	var result track.LoadResult
	if err := n.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("load tracks on node %q: %w", n.opts.Name, err)
	}
	return &result, nil
}

// DecodeTrack expands an encoded track back into its metadata.
func (n *Node) DecodeTrack(ctx context.Context, encoded string) (*track.Track, error) {
	endpoint := n.restURL("/decodetrack?track=" + url.QueryEscape(encoded))

	var info track.Info
	if err := n.getJSON(ctx, endpoint, &info); err != nil {
		return nil, fmt.Errorf("decode track on node %q: %w", n.opts.Name, err)
	}
	return &track.Track{Encoded: encoded, Info: info}, nil
}

func (n *Node) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", n.opts.Password)

	n.calls.Add(1)

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d from %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
