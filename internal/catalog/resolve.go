package catalog

import (
	"fmt"
	"os"

	"github.com/edvin/triggerd/internal/model"
)

// ResolveWebhook applies env indirection to a webhook reference and returns
// the delivery URL.
func ResolveWebhook(conf model.WebhookConf) (string, error) {
	if conf.URL != "" {
		return conf.URL, nil
	}
	if conf.FromEnv == "" {
		return "", fmt.Errorf("webhook conf sets neither url nor from_env")
	}
	url, ok := os.LookupEnv(conf.FromEnv)
	if !ok || url == "" {
		return "", fmt.Errorf("webhook env var %s is not set", conf.FromEnv)
	}
	return url, nil
}

// ResolveHeaders applies env indirection to each header reference.
func ResolveHeaders(confs []model.HeaderConf) ([]model.ResolvedHeader, error) {
	headers := make([]model.ResolvedHeader, 0, len(confs))
	for _, conf := range confs {
		value := conf.Value
		if conf.ValueEnv != "" {
			v, ok := os.LookupEnv(conf.ValueEnv)
			if !ok {
				return nil, fmt.Errorf("header %s: env var %s is not set", conf.Name, conf.ValueEnv)
			}
			value = v
		}
		headers = append(headers, model.ResolvedHeader{Name: conf.Name, Value: value})
	}
	return headers, nil
}
