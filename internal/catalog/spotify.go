package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

const (
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Spotify searches the Spotify catalog with an app-only client credentials
// token. Only the 30 second preview is playable, and many tracks have none.
type Spotify struct {
	baseURL string
	market  string
	client  *http.Client
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
		Images      []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	TrackNumber int `json:"track_number"`
}

// NewSpotify creates a Spotify source. Tokens are fetched lazily and
// refreshed by the oauth2 transport; base carries the underlying client.
func NewSpotify(ctx context.Context, cfg config.SpotifyConfig, base *http.Client) (*Spotify, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", playerrors.ErrMissingConfig)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = spotifyBaseURL
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}

	return &Spotify{
		baseURL: strings.TrimRight(apiURL, "/"),
		market:  cfg.Market,
		client:  creds.Client(ctx),
	}, nil
}

func (s *Spotify) Name() string { return string(api.SourceSpotify) }

// Search queries /search?type=track
func (s *Spotify) Search(ctx context.Context, query string, limit int) ([]*api.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(clampLimit(limit, 50)))
	if s.market != "" {
		params.Set("market", s.market)
	}

	var resp spotifySearchResponse
	if err := getJSON(ctx, s.client, s.Name(), s.baseURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	tracks := make([]*api.Track, 0, len(resp.Tracks.Items))
	for _, item := range resp.Tracks.Items {
		tracks = append(tracks, item.toTrack())
	}
	return tracks, nil
}

func (r spotifyTrack) toTrack() *api.Track {
	artists := make([]string, 0, len(r.Artists))
	for _, a := range r.Artists {
		artists = append(artists, a.Name)
	}

	t := &api.Track{
		ID:        r.ID,
		Title:     r.Name,
		Artist:    strings.Join(artists, ", "),
		Album:     r.Album.Name,
		MediaURL:  r.PreviewURL,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
		Source:    api.SourceSpotify,
		TrackNum:  r.TrackNumber,
		CreatedAt: time.Now(),
	}
	if len(r.Album.Images) > 0 {
		t.Thumbnail = r.Album.Images[0].URL
	}
	if len(r.Album.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(r.Album.ReleaseDate[:4]); err == nil {
			t.Year = year
		}
	}
	return t
}
