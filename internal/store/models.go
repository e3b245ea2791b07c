package store

import (
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

// ContentItem is the durable record of a piece of submitted content.
type ContentItem struct {
	ID        string
	Kind      queue.Kind
	Status    queue.Status
	Caption   string
	Author    string
	ShareURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemMetadata carries the descriptive fields written when a content item is
// first seen. Later calls with different metadata leave the stored row alone.
type ItemMetadata struct {
	Kind     queue.Kind
	Caption  string
	Author   string
	ShareURL string
}

// MetadataFromPayload derives the initial item metadata from a job payload.
func MetadataFromPayload(payload queue.Payload) ItemMetadata {
	meta := ItemMetadata{Kind: payload.Kind}
	switch payload.Kind {
	case queue.KindVideo:
		if payload.Video != nil {
			meta.ShareURL = payload.Video.ShareURL
		}
	case queue.KindStatic:
		if payload.Static != nil {
			meta.Caption = payload.Static.Caption
		}
	}
	return meta
}

// ResultMeta records how a result was produced.
type ResultMeta struct {
	Engines          map[string]string `json:"engines"`
	ContentHash      string            `json:"content_hash"`
	DetectedLanguage string            `json:"detected_language"`
	RulesVersion     string            `json:"rules_version"`
	ProcessedAt      time.Time         `json:"processed_at"`
}

// Result is the full analysis output for one content item. Exactly one row
// exists per content id; reruns replace it wholesale.
type Result struct {
	ContentID      string
	Status         queue.Status
	CategoryScores map[string]float64
	AggregateScore float64
	VisualScores   map[string]float64
	Classifiers    map[string][]string
	Findings       map[string]string
	Suggestions    []string
	Transcript     string
	OCRText        []string
	Keyframes      []string
	Meta           ResultMeta
	UpdatedAt      time.Time
}
