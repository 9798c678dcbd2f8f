// Package catalog holds the trigger-definition catalog: the mapping from
// trigger name to cron schedule, webhook reference, payload, retry policy and
// headers. Definitions live in a YAML file and are re-read when the file
// changes, so a deploy that rewrites the file takes effect on the next loop
// iteration without a restart.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edvin/triggerd/internal/model"
	"github.com/edvin/triggerd/internal/schedule"
)

var validate = validator.New()

// JSONFromYAML is a JSON value decoded from a YAML node, so catalog payloads
// written as YAML reach webhooks as the equivalent JSON.
type JSONFromYAML json.RawMessage

func (j *JSONFromYAML) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*j = JSONFromYAML(raw)
	return nil
}

// TriggerDefinition is one recurring trigger as declared in the catalog file.
type TriggerDefinition struct {
	Name     string             `yaml:"name" validate:"required"`
	Schedule string             `yaml:"schedule" validate:"required"`
	Webhook  model.WebhookConf  `yaml:"webhook"`
	Payload  JSONFromYAML       `yaml:"payload"`
	Retry    model.RetryConf    `yaml:"retry_conf"`
	Headers  []model.HeaderConf `yaml:"headers" validate:"dive"`
	Comment  *string            `yaml:"comment"`
}

// PayloadJSON returns the trigger's static payload as JSON, or nil when the
// catalog entry has none.
func (d *TriggerDefinition) PayloadJSON() json.RawMessage {
	return json.RawMessage(d.Payload)
}

type catalogFile struct {
	CronTriggers []TriggerDefinition `yaml:"cron_triggers"`
}

// Catalog is a read-through snapshot holder over the catalog file.
type Catalog struct {
	path string

	mu       sync.Mutex
	modTime  time.Time
	triggers map[string]TriggerDefinition
}

// Open loads the catalog file and fails fast on a broken catalog so a bad
// deploy never boots.
func Open(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if _, err := c.Snapshot(); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current trigger map, reloading the file first if it
// changed on disk. When a reload fails the previous snapshot is kept and the
// error is returned alongside it, so callers can keep running on the last
// good catalog.
func (c *Catalog) Snapshot() (map[string]TriggerDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return c.triggers, fmt.Errorf("stat catalog file: %w", err)
	}

	if c.triggers != nil && info.ModTime().Equal(c.modTime) {
		return c.triggers, nil
	}

	triggers, err := loadFile(c.path)
	if err != nil {
		return c.triggers, err
	}

	c.triggers = triggers
	c.modTime = info.ModTime()
	return c.triggers, nil
}

func loadFile(path string) (map[string]TriggerDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	triggers := make(map[string]TriggerDefinition, len(file.CronTriggers))
	for i := range file.CronTriggers {
		def := file.CronTriggers[i]
		if err := validateDefinition(&def); err != nil {
			return nil, fmt.Errorf("trigger %q: %w", def.Name, err)
		}
		if _, dup := triggers[def.Name]; dup {
			return nil, fmt.Errorf("trigger %q: duplicate definition", def.Name)
		}
		triggers[def.Name] = def
	}
	return triggers, nil
}

func validateDefinition(def *TriggerDefinition) error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if _, err := schedule.Parse(def.Schedule); err != nil {
		return err
	}
	if def.Webhook.URL == "" && def.Webhook.FromEnv == "" {
		return fmt.Errorf("webhook must set url or from_env")
	}
	if def.Retry == (model.RetryConf{}) {
		def.Retry = model.DefaultRetryConf()
	}
	return nil
}
