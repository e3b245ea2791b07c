package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout pads fractional seconds so stored timestamps compare
// lexicographically inside SQL predicates.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = "id, content_id, kind, payload_json, content_hash, rules_version, idempotency_key, status, attempts, max_attempts, next_attempt_at, progress_percent, progress_message, error_message, last_heartbeat, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		contentID        string
		kindStr          string
		payloadJSON      string
		contentHash      string
		rulesVersion     string
		idempotencyKey   string
		statusStr        string
		attempts         int
		maxAttempts      int
		nextAttemptRaw   sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		errorMessage     sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&contentID,
		&kindStr,
		&payloadJSON,
		&contentHash,
		&rulesVersion,
		&idempotencyKey,
		&statusStr,
		&attempts,
		&maxAttempts,
		&nextAttemptRaw,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		ContentID:       contentID,
		Kind:            Kind(kindStr),
		PayloadJSON:     payloadJSON,
		ContentHash:     contentHash,
		RulesVersion:    rulesVersion,
		IdempotencyKey:  idempotencyKey,
		Status:          Status(statusStr),
		Attempts:        attempts,
		MaxAttempts:     maxAttempts,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
	}

	if next, err := parseTimeString(nextAttemptRaw.String); err == nil {
		job.NextAttemptAt = next
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// DecodePayload unmarshals and validates the stored payload.
func (j *Job) DecodePayload() (Payload, error) {
	var payload Payload
	if err := json.Unmarshal([]byte(j.PayloadJSON), &payload); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return Payload{}, err
	}
	return payload, nil
}
