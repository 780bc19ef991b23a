package catalog

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

const (
	youtubeBaseURL = "https://www.googleapis.com/youtube/v3"
	// youtubeMusicCategory restricts search to the Music video category
	youtubeMusicCategory = "10"
)

// YouTube searches music videos through the Data API v3. Tracks carry an
// EmbedID but no direct media URL.
type YouTube struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// NewYouTube creates a YouTube source. An API key is required.
func NewYouTube(cfg config.YouTubeConfig, client *http.Client) (*YouTube, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key", playerrors.ErrMissingConfig)
	}
	base := cfg.BaseURL
	if base == "" {
		base = youtubeBaseURL
	}
	return &YouTube{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		client:  httpClient(client),
	}, nil
}

func (y *YouTube) Name() string { return string(api.SourceYouTube) }

// Search runs a video search and then looks up durations for the hits
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]*api.Track, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", youtubeMusicCategory)
	params.Set("maxResults", strconv.Itoa(clampLimit(limit, 50)))
	params.Set("q", query)
	params.Set("key", y.apiKey)

	var search youtubeSearchResponse
	if err := getJSON(ctx, y.client, y.Name(), y.baseURL+"/search?"+params.Encode(), &search); err != nil {
		return nil, err
	}
	if len(search.Items) == 0 {
		return []*api.Track{}, nil
	}

	tracks := make([]*api.Track, 0, len(search.Items))
	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID == "" {
			continue
		}
		t := &api.Track{
			ID:        item.ID.VideoID,
			Title:     html.UnescapeString(item.Snippet.Title),
			Artist:    html.UnescapeString(item.Snippet.ChannelTitle),
			Thumbnail: item.Snippet.Thumbnails.Medium.URL,
			EmbedID:   item.ID.VideoID,
			Source:    api.SourceYouTube,
			CreatedAt: time.Now(),
		}
		if published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			t.Year = published.Year()
		}
		tracks = append(tracks, t)
		ids = append(ids, item.ID.VideoID)
	}

	durations, err := y.durations(ctx, ids)
	if err != nil {
		// Results are still usable without durations
		return tracks, nil
	}
	for _, t := range tracks {
		t.Duration = durations[t.ID]
	}
	return tracks, nil
}

func (y *YouTube) durations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", y.apiKey)

	var videos youtubeVideosResponse
	if err := getJSON(ctx, y.client, y.Name(), y.baseURL+"/videos?"+params.Encode(), &videos); err != nil {
		return nil, err
	}

	out := make(map[string]time.Duration, len(videos.Items))
	for _, v := range videos.Items {
		if d, err := ParseISODuration(v.ContentDetails.Duration); err == nil {
			out[v.ID] = d
		}
	}
	return out, nil
}
