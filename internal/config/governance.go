package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WhitelistEntry lists the fields of one entity type that corrections may touch.
type WhitelistEntry struct {
	EntityType string   `mapstructure:"entityType"`
	Fields     []string `mapstructure:"fields"`
}

type GovernanceFile struct {
	Whitelist []WhitelistEntry `mapstructure:"whitelist"`
}

func DefaultGovernanceFile() GovernanceFile {
	return GovernanceFile{
		Whitelist: []WhitelistEntry{
			{EntityType: "catalog_item", Fields: []string{"unit_price", "weight_grams"}},
		},
	}
}

// Allows reports whether (entityType, field) is on the mutation whitelist.
func (g GovernanceFile) Allows(entityType, field string) bool {
	entityType = strings.TrimSpace(entityType)
	field = strings.TrimSpace(field)
	for _, entry := range g.Whitelist {
		if entry.EntityType != entityType {
			continue
		}
		for _, f := range entry.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

type GovernanceConfigHolder struct {
	current atomic.Value // holds GovernanceFile
}

// NewStaticGovernanceHolder returns a holder that never reloads. Used by tests and the CLI.
func NewStaticGovernanceHolder(file GovernanceFile) *GovernanceConfigHolder {
	holder := &GovernanceConfigHolder{}
	holder.current.Store(file)
	return holder
}

func NewGovernanceConfigHolder(cfg Config, log *zap.Logger) (*GovernanceConfigHolder, error) {
	v := viper.New()

	if cfg.GovernanceFilePath != "" {
		v.SetConfigFile(cfg.GovernanceFilePath)
	} else {
		v.SetConfigName("governance")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/panelquote")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PANELQUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultGovernanceFile()
		v.SetDefault("governance.whitelist", defaults.Whitelist)
	}

	var file GovernanceFile
	if err := v.UnmarshalKey("governance", &file); err != nil {
		return nil, err
	}
	if err := validateGovernanceFile(file); err != nil {
		return nil, err
	}

	holder := NewStaticGovernanceHolder(file)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GovernanceFile
		if err := v.UnmarshalKey("governance", &updated); err != nil {
			log.Warn("governance config reload failed", zap.Error(err))
			return
		}
		if err := validateGovernanceFile(updated); err != nil {
			log.Warn("invalid governance config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("governance config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GovernanceConfigHolder) Get() GovernanceFile {
	return h.current.Load().(GovernanceFile)
}

func validateGovernanceFile(file GovernanceFile) error {
	for _, entry := range file.Whitelist {
		if strings.TrimSpace(entry.EntityType) == "" {
			return errors.New("governance.whitelist entityType cannot be empty")
		}
		if len(entry.Fields) == 0 {
			return errors.New("governance.whitelist fields cannot be empty")
		}
	}
	return nil
}
