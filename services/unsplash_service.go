package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hasiru/metrics"

	"go.uber.org/zap"
)

// ImageSearcher finds a photo URL for a query. It never fails: on any error
// a generic random-photo URL is returned.
type ImageSearcher interface {
	Search(ctx context.Context, query string) string
}

type UnsplashService struct {
	accessKey string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

func NewUnsplashService(accessKey, baseURL string, logger *zap.Logger) *UnsplashService {
	if baseURL == "" {
		baseURL = "https://api.unsplash.com"
	}
	return &UnsplashService{
		accessKey: accessKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// FallbackImageURL is the random-photo URL used when search fails.
func FallbackImageURL(query string) string {
	return "https://source.unsplash.com/random/1080x1080/?" + url.QueryEscape(strings.ToLower(query))
}

func (s *UnsplashService) Search(ctx context.Context, query string) string {
	u, err := s.search(ctx, query)
	if err != nil {
		s.logger.Warn("unsplash search failed, using fallback", zap.String("query", query), zap.Error(err))
		return FallbackImageURL(query)
	}
	if u == "" {
		return FallbackImageURL(query)
	}
	return u
}

func (s *UnsplashService) search(ctx context.Context, query string) (string, error) {
	if s.accessKey == "" {
		return "", fmt.Errorf("unsplash access key not set")
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("orientation", "squarish")
	q.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+s.accessKey)
	req.Header.Set("Accept-Version", "v1")

	done := metrics.TimeCall("unsplash", "search_photos")
	resp, err := s.client.Do(req)
	if err != nil {
		done(false)
		return "", fmt.Errorf("failed to call unsplash: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		done(false)
		return "", fmt.Errorf("failed to read unsplash response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		done(false)
		return "", fmt.Errorf("unsplash API error %d: %s", resp.StatusCode, string(body))
	}
	done(true)

	var sr unsplashSearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to parse unsplash JSON: %w", err)
	}
	if len(sr.Results) == 0 {
		return "", nil
	}
	return sr.Results[0].URLs.Regular, nil
}
