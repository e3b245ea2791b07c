package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// resolvePrimary drives an Apify actor run: start the run, poll until it
// finishes, then read the dataset items it produced.
func (s *Service) resolvePrimary(ctx context.Context, shareURL string) (*Resolution, error) {
	runID, err := s.startActorRun(ctx, shareURL)
	if err != nil {
		return nil, fmt.Errorf("start actor run: %w", err)
	}

	items, err := s.waitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("actor run %s: %w", runID, err)
	}

	resolution, err := parseActorItems(items)
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

func (s *Service) startActorRun(ctx context.Context, shareURL string) (string, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s", s.cfg.ApifyBaseURL, s.cfg.ApifyActorID, s.cfg.ApifyToken)
	input := map[string]any{
		"postURLs":       []string{shareURL},
		"resultsPerPage": 1,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode actor input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("actor start: http %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode run response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("actor start: empty run id")
	}
	return result.Data.ID, nil
}

func (s *Service) waitForRun(ctx context.Context, runID string) ([]map[string]any, error) {
	statusURL := fmt.Sprintf("%s/actor-runs/%s?token=%s", s.cfg.ApifyBaseURL, runID, s.cfg.ApifyToken)
	interval := time.Duration(s.cfg.PollIntervalSeconds) * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		var status struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode run status: %w", decodeErr)
		}

		switch status.Data.Status {
		case "SUCCEEDED":
			return s.datasetItems(ctx, status.Data.DefaultDatasetID)
		case "FAILED", "ABORTED", "TIMED-OUT":
			return nil, fmt.Errorf("run finished with status %s", status.Data.Status)
		}
	}
}

func (s *Service) datasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s", s.cfg.ApifyBaseURL, datasetID, s.cfg.ApifyToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset items: http %d", resp.StatusCode)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

func parseActorItems(items []map[string]any) (*Resolution, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no results returned from scraper")
	}
	item := items[0]

	videoURL := firstStringField(item, "videoUrl", "video_url", "downloadUrl", "download_url", "videoPlayUrl", "mediaUrls")
	if videoURL == "" {
		if video, ok := item["videoMeta"].(map[string]any); ok {
			videoURL = firstStringField(video, "downloadAddr", "playAddr")
		}
	}
	if videoURL == "" {
		return nil, fmt.Errorf("no video url in scraper response")
	}

	meta := Metadata{
		Caption:  firstStringField(item, "text", "caption", "desc"),
		CoverURL: firstStringField(item, "coverUrl", "cover"),
		Views:    int64Field(item, "playCount"),
		Likes:    int64Field(item, "diggCount"),
		Comments: int64Field(item, "commentCount"),
		Shares:   int64Field(item, "shareCount"),
	}
	if author, ok := item["authorMeta"].(map[string]any); ok {
		meta.Author = firstStringField(author, "nickName", "name")
	}
	if video, ok := item["videoMeta"].(map[string]any); ok {
		meta.DurationSeconds = floatField(video, "duration")
	}
	if meta.DurationSeconds == 0 {
		meta.DurationSeconds = floatField(item, "duration")
	}

	return &Resolution{VideoURL: videoURL, Meta: meta}, nil
}

func firstStringField(item map[string]any, fields ...string) string {
	for _, field := range fields {
		if value, ok := item[field].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func int64Field(item map[string]any, field string) int64 {
	if value, ok := item[field].(float64); ok {
		return int64(value)
	}
	return 0
}

func floatField(item map[string]any, field string) float64 {
	if value, ok := item[field].(float64); ok {
		return value
	}
	return 0
}
