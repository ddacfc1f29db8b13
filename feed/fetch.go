package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/johanjanssens/tulsafeed/feed/gtfsrt"
)

// Fetch issues one GTFS-realtime request for f and returns the number of
// entities carrying a trip_update.
func Fetch(ctx context.Context, client *http.Client, f Feed) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("feed %d: building request: %w", f.ID, err)
	}
	for k, v := range f.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("feed %d: fetch: %w", f.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed %d: unexpected status %s", f.ID, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("feed %d: reading body: %w", f.ID, err)
	}

	count, err := gtfsrt.CountTripUpdates(body)
	if err != nil {
		return 0, fmt.Errorf("feed %d: decoding feed message: %w", f.ID, err)
	}
	return count, nil
}
