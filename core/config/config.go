package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

// Pipe ordering policies.
const (
	PipeOrderFirstStageLeads = "first_stage_leads"
	PipeOrderLastStageLeads  = "last_stage_leads"
)

type Configuration struct {
	configFs afero.Fs

	Prompt      string `json:"prompt"`
	HistoryFile string `json:"history_file"`

	PipeOrder   string `json:"pipe_order" validate:"required,oneof=first_stage_leads last_stage_leads"`
	LightFork   bool   `json:"light_fork"`
	NoClobber   bool   `json:"noclobber"`
	NoAmbiguous bool   `json:"noambiguous"`

	EventLog string   `json:"event_log"`
	Path     []string `json:"path" validate:"dive,required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewMemMapFs()
	}
	return c.configFs
}

// OpenEventLog opens the event log in an append only state, it returns nil
// if the event log is disabled.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, os.ErrNotExist
	}
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// DefaultPath joins Path the way $PATH is written.
func (c *Configuration) DefaultPath() string {
	return strings.Join(c.Path, string(os.PathListSeparator))
}

// Default returns the built in configuration, used when no configuration
// directory was initialized.
func Default() *Configuration {
	return defaultConfig()
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
