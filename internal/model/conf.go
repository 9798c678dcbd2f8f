package model

// RetryConf bounds the delivery attempts for a scheduled event.
type RetryConf struct {
	NumRetries           int     `json:"num_retries" yaml:"num_retries"`
	RetryIntervalSeconds int     `json:"interval_sec" yaml:"interval_sec"`
	TimeoutSeconds       float64 `json:"timeout_sec" yaml:"timeout_sec"`
	ToleranceSeconds     int     `json:"tolerance_sec" yaml:"tolerance_sec"`
}

// DefaultRetryConf mirrors the defaults applied when a trigger or one-off
// event omits its retry configuration.
func DefaultRetryConf() RetryConf {
	return RetryConf{
		NumRetries:           0,
		RetryIntervalSeconds: 10,
		TimeoutSeconds:       60,
		ToleranceSeconds:     21600, // 6 hours
	}
}

// WebhookConf is an unresolved webhook reference: either a literal URL or
// the name of an environment variable holding one.
type WebhookConf struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	FromEnv string `json:"from_env,omitempty" yaml:"from_env,omitempty"`
}

// HeaderConf is one request header: a literal value or an env reference.
type HeaderConf struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	ValueEnv string `json:"value_from_env,omitempty" yaml:"value_from_env,omitempty"`
}

// ResolvedHeader is a header after env indirection has been applied.
type ResolvedHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
