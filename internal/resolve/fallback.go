package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// resolveFallback queries the free resolver: a single GET returning the
// direct play URL plus basic stats.
func (s *Service) resolveFallback(ctx context.Context, shareURL string) (*Resolution, error) {
	endpoint := s.cfg.FallbackBaseURL + "/?url=" + url.QueryEscape(shareURL) + "&hd=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback resolver: http %d", resp.StatusCode)
	}

	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Play     string  `json:"play"`
			Title    string  `json:"title"`
			Cover    string  `json:"cover"`
			Duration float64 `json:"duration"`
			Plays    int64   `json:"play_count"`
			Likes    int64   `json:"digg_count"`
			Comments int64   `json:"comment_count"`
			Shares   int64   `json:"share_count"`
			Author   struct {
				Nickname string `json:"nickname"`
			} `json:"author"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fallback response: %w", err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("fallback resolver: code %d: %s", payload.Code, strings.TrimSpace(payload.Msg))
	}
	if payload.Data.Play == "" {
		return nil, fmt.Errorf("fallback resolver: no play url")
	}

	return &Resolution{
		VideoURL: payload.Data.Play,
		Meta: Metadata{
			Caption:         payload.Data.Title,
			Author:          payload.Data.Author.Nickname,
			CoverURL:        payload.Data.Cover,
			DurationSeconds: payload.Data.Duration,
			Views:           payload.Data.Plays,
			Likes:           payload.Data.Likes,
			Comments:        payload.Data.Comments,
			Shares:          payload.Data.Shares,
		},
	}, nil
}
