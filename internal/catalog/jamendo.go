package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

const jamendoBaseURL = "https://api.jamendo.com/v3.0"

// Jamendo searches the Jamendo catalog. Tracks carry a direct MP3 stream URL.
type Jamendo struct {
	clientID string
	baseURL  string
	client   *http.Client
}

type jamendoResponse struct {
	Headers struct {
		Status       string `json:"status"`
		Code         int    `json:"code"`
		ErrorMessage string `json:"error_message"`
	} `json:"headers"`
	Results []jamendoTrack `json:"results"`
}

type jamendoTrack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name"`
	Image       string `json:"image"`
	Audio       string `json:"audio"`
	ReleaseDate string `json:"releasedate"`
}

// NewJamendo creates a Jamendo source. A client id is required.
func NewJamendo(cfg config.JamendoConfig, client *http.Client) (*Jamendo, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: jamendo client_id", playerrors.ErrMissingConfig)
	}
	base := cfg.BaseURL
	if base == "" {
		base = jamendoBaseURL
	}
	return &Jamendo{
		clientID: cfg.ClientID,
		baseURL:  strings.TrimRight(base, "/"),
		client:   httpClient(client),
	}, nil
}

func (j *Jamendo) Name() string { return string(api.SourceJamendo) }

// Search queries /tracks by free text
func (j *Jamendo) Search(ctx context.Context, query string, limit int) ([]*api.Track, error) {
	params := url.Values{}
	params.Set("client_id", j.clientID)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(clampLimit(limit, 200)))
	params.Set("search", query)
	params.Set("audioformat", "mp32")

	var resp jamendoResponse
	if err := getJSON(ctx, j.client, j.Name(), j.baseURL+"/tracks/?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Headers.Status != "" && resp.Headers.Status != "success" {
		return nil, &playerrors.UpstreamError{Source: j.Name(), Status: resp.Headers.Code, Detail: resp.Headers.ErrorMessage}
	}

	tracks := make([]*api.Track, 0, len(resp.Results))
	for _, r := range resp.Results {
		tracks = append(tracks, r.toTrack())
	}
	return tracks, nil
}

func (r jamendoTrack) toTrack() *api.Track {
	t := &api.Track{
		ID:        r.ID,
		Title:     r.Name,
		Artist:    r.ArtistName,
		Album:     r.AlbumName,
		Thumbnail: r.Image,
		MediaURL:  r.Audio,
		Duration:  time.Duration(r.Duration) * time.Second,
		Source:    api.SourceJamendo,
		CreatedAt: time.Now(),
	}
	if released, err := time.Parse("2006-01-02", r.ReleaseDate); err == nil {
		t.Year = released.Year()
	}
	return t
}
