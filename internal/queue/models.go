package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Status represents the lifecycle of a queued analysis job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status will never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind discriminates the two content modes a job can carry.
type Kind string

const (
	KindVideo  Kind = "video"
	KindStatic Kind = "static"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case KindVideo, KindStatic:
		return normalized, true
	}
	return "", false
}

// Engagement carries the numeric platform metrics submitted with a job.
type Engagement struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// VideoPayload describes a job that needs resolution and media extraction.
type VideoPayload struct {
	ShareURL   string     `json:"share_url"`
	Engagement Engagement `json:"engagement"`
}

// StaticPayload describes a job analyzed from caption text and an optional
// cover image, without any media extraction.
type StaticPayload struct {
	Caption    string     `json:"caption"`
	CoverURL   string     `json:"cover_url,omitempty"`
	Engagement Engagement `json:"engagement"`
}

// Payload is a tagged union over the two content modes. Exactly one of the
// mode fields is set, matching Kind.
type Payload struct {
	Kind   Kind           `json:"kind"`
	Video  *VideoPayload  `json:"video,omitempty"`
	Static *StaticPayload `json:"static,omitempty"`
}

// Validate checks the discriminant matches the populated variant.
func (p Payload) Validate() error {
	switch p.Kind {
	case KindVideo:
		if p.Video == nil || strings.TrimSpace(p.Video.ShareURL) == "" {
			return errors.New("video payload requires a share url")
		}
		if p.Static != nil {
			return errors.New("video payload must not carry static fields")
		}
	case KindStatic:
		if p.Static == nil || strings.TrimSpace(p.Static.Caption) == "" {
			return errors.New("static payload requires a caption")
		}
		if p.Video != nil {
			return errors.New("static payload must not carry video fields")
		}
	default:
		return errors.New("payload kind must be video or static")
	}
	return nil
}

// Engagement returns the metrics for whichever variant is populated.
func (p Payload) EngagementMetrics() Engagement {
	switch p.Kind {
	case KindVideo:
		if p.Video != nil {
			return p.Video.Engagement
		}
	case KindStatic:
		if p.Static != nil {
			return p.Static.Engagement
		}
	}
	return Engagement{}
}

// SubmissionHash derives the content hash recorded at submission time. It
// covers the analyzable inputs the caller provided so resubmitting identical
// content collapses onto the queued job.
func (p Payload) SubmissionHash() string {
	h := sha256.New()
	h.Write([]byte(p.Kind))
	h.Write([]byte{0})
	switch p.Kind {
	case KindVideo:
		if p.Video != nil {
			h.Write([]byte(p.Video.ShareURL))
		}
	case KindStatic:
		if p.Static != nil {
			h.Write([]byte(p.Static.Caption))
			h.Write([]byte{0})
			h.Write([]byte(p.Static.CoverURL))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IdempotencyKey derives the identity under which duplicate submissions
// collapse: one in-flight job per (content, content-hash, rules-version).
func IdempotencyKey(contentID, contentHash, rulesVersion string) string {
	h := sha256.New()
	h.Write([]byte(contentID))
	h.Write([]byte{0})
	h.Write([]byte(contentHash))
	h.Write([]byte{0})
	h.Write([]byte(rulesVersion))
	return hex.EncodeToString(h.Sum(nil))
}

// Job represents a queued analysis request persisted in SQLite.
type Job struct {
	ID              int64
	ContentID       string
	Kind            Kind
	PayloadJSON     string
	ContentHash     string
	RulesVersion    string
	IdempotencyKey  string
	Status          Status
	Attempts        int
	MaxAttempts     int
	NextAttemptAt   time.Time
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Stats aggregates queue counts for observability.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
