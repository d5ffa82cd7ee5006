package payload

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	NotifierName    = "rollbar-notifier"
	NotifierVersion = "0.3.0"
)

var (
	// DefaultPlatform is stamped on every Data built by NewData.
	DefaultPlatform = runtime.GOOS
	// DefaultLanguage is stamped on every Data built by NewData.
	DefaultLanguage = "go"
)

// Level is the severity of a report.
type Level string

const (
	LevelCritical Level = "critical"
	LevelError    Level = "error"
	LevelWarning  Level = "warning"
	LevelInfo     Level = "info"
	LevelDebug    Level = "debug"
)

var levels = []Level{LevelCritical, LevelError, LevelWarning, LevelInfo, LevelDebug}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(levels, l) {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Notifier names the library that produced the report.
type Notifier struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var notifier = Notifier{Name: NotifierName, Version: NotifierVersion}

// Data is the report envelope: the body plus environment metadata.
type Data struct {
	Environment string         `json:"environment"`
	Body        *Body          `json:"body"`
	Level       Level          `json:"level,omitempty"`
	Timestamp   int64          `json:"timestamp,omitempty"`
	CodeVersion string         `json:"code_version,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	Language    string         `json:"language,omitempty"`
	Framework   string         `json:"framework,omitempty"`
	Context     string         `json:"context,omitempty"`
	Request     *Request       `json:"request,omitempty"`
	Person      *Person        `json:"person,omitempty"`
	Server      *Server        `json:"server,omitempty"`
	Client      *Client        `json:"client,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Title       string         `json:"title,omitempty"`
	UUID        string         `json:"uuid,omitempty"`
}

// NewData returns an envelope for body, stamped with the current time and
// the default platform and language.
func NewData(environment string, body *Body) (*Data, error) {
	d := &Data{
		Environment: environment,
		Body:        body,
		Timestamp:   time.Now().Unix(),
		Platform:    DefaultPlatform,
		Language:    DefaultLanguage,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the required fields.
func (d *Data) Validate() error {
	if isBlank(d.Environment) {
		return blank("environment")
	}
	if d.Body == nil {
		return missing("body")
	}
	return nil
}

// SetGUID stores id in its 32 digit form.
func (d *Data) SetGUID(id uuid.UUID) {
	d.UUID = strings.ReplaceAll(id.String(), "-", "")
}

// GUID parses the stored uuid. ok is false when none is set.
func (d *Data) GUID() (id uuid.UUID, ok bool, err error) {
	if d.UUID == "" {
		return uuid.Nil, false, nil
	}
	id, err = uuid.Parse(d.UUID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("invalid uuid %q: %w", d.UUID, err)
	}
	return id, true, nil
}

// NewGUID assigns a random uuid and returns it.
func (d *Data) NewGUID() uuid.UUID {
	id := uuid.New()
	d.SetGUID(id)
	return id
}

func (d *Data) MarshalJSON() ([]byte, error) {
	type data Data
	return json.Marshal(struct {
		*data
		Notifier Notifier `json:"notifier"`
	}{data: (*data)(d), Notifier: notifier})
}

// Item is the object submitted to the service.
type Item struct {
	AccessToken string `json:"access_token"`
	Data        *Data  `json:"data"`
}

// NewItem wraps data for submission.
func NewItem(accessToken string, data *Data) (*Item, error) {
	if data == nil {
		return nil, missing("data")
	}
	return &Item{AccessToken: accessToken, Data: data}, nil
}
