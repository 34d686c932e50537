// internal/hrapi/videos.go
package hrapi

import (
	"context"
	"net/url"
)

// VideoFeed looks up candidate videos that have arrived on the HR platform.
// Videos are uploaded out of band, so the feed is polled with the service
// token rather than a subject token.
type VideoFeed struct {
	client *Client
	token  string
}

func NewVideoFeed(client *Client, serviceToken string) *VideoFeed {
	return &VideoFeed{client: client, token: serviceToken}
}

// FreshVideos returns the videos currently available for a subject's
// applications, keyed by application ID.
func (f *VideoFeed) FreshVideos(ctx context.Context, subjectID string) (map[string]string, error) {
	var payload struct {
		Items []struct {
			NegotiationID string `json:"negotiation_id"`
			VideoURL      string `json:"video_url"`
		} `json:"items"`
	}
	if err := f.client.getJSON(ctx, f.token, "/videos", url.Values{"subject_id": {subjectID}}, &payload); err != nil {
		return nil, err
	}

	videos := make(map[string]string, len(payload.Items))
	for _, item := range payload.Items {
		if item.NegotiationID == "" || item.VideoURL == "" {
			continue
		}
		videos[item.NegotiationID] = item.VideoURL
	}
	return videos, nil
}
