package model

import (
	"encoding/json"
	"time"
)

// CronEvent is one materialized future occurrence of a recurring trigger.
type CronEvent struct {
	ID            string      `json:"id" db:"id"`
	TriggerName   string      `json:"trigger_name" db:"trigger_name"`
	ScheduledTime time.Time   `json:"scheduled_time" db:"scheduled_time"`
	NextRetryAt   *time.Time  `json:"next_retry_at,omitempty" db:"next_retry_at"`
	Tries         int         `json:"tries" db:"tries"`
	Status        EventStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// CronEventSeed is a (trigger, instant) pair the generator inserts.
type CronEventSeed struct {
	TriggerName   string
	ScheduledTime time.Time
}

// TriggerStats is one row of the deprived-trigger query: a trigger whose
// buffer of future scheduled events has fallen below the hydration threshold.
type TriggerStats struct {
	TriggerName         string
	UpcomingEventsCount int
	MaxScheduledTime    *time.Time
}

// OneOffEvent is a self-describing single-shot delivery created through the
// API. Unlike cron events it carries its own webhook, retry, and header
// configuration.
type OneOffEvent struct {
	ID            string          `json:"id" db:"id"`
	WebhookConf   WebhookConf     `json:"webhook_conf" db:"webhook_conf"`
	ScheduledTime time.Time       `json:"scheduled_time" db:"scheduled_time"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty" db:"next_retry_at"`
	Payload       json.RawMessage `json:"payload,omitempty" db:"payload"`
	RetryConf     RetryConf       `json:"retry_conf" db:"retry_conf"`
	HeaderConf    []HeaderConf    `json:"header_conf" db:"header_conf"`
	Comment       *string         `json:"comment,omitempty" db:"comment"`
	Tries         int             `json:"tries" db:"tries"`
	Status        EventStatus     `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
