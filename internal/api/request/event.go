package request

import "encoding/json"

// WebhookConf mirrors model.WebhookConf for request decoding.
type WebhookConf struct {
	URL     string `json:"url" validate:"omitempty,url"`
	FromEnv string `json:"from_env" validate:"omitempty,max=255"`
}

type RetryConf struct {
	NumRetries       *int     `json:"num_retries" validate:"omitempty,min=0,max=100"`
	IntervalSeconds  *int     `json:"interval_sec" validate:"omitempty,min=1,max=86400"`
	TimeoutSeconds   *float64 `json:"timeout_sec" validate:"omitempty,min=0,max=3600"`
	ToleranceSeconds *int     `json:"tolerance_sec" validate:"omitempty,min=0"`
}

type HeaderConf struct {
	Name     string `json:"name" validate:"required,max=255"`
	Value    string `json:"value" validate:"omitempty,max=4096"`
	ValueEnv string `json:"value_from_env" validate:"omitempty,max=255"`
}

// CreateOneOffEvent is the body of POST /v1/events.
type CreateOneOffEvent struct {
	Webhook    WebhookConf     `json:"webhook"`
	ScheduleAt string          `json:"schedule_at" validate:"required"`
	Payload    json.RawMessage `json:"payload"`
	Retry      *RetryConf      `json:"retry_conf"`
	Headers    []HeaderConf    `json:"headers" validate:"dive"`
	Comment    *string         `json:"comment" validate:"omitempty,max=1024"`
}
