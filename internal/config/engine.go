package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig tunes the contract and commission engines. It is hot-reloaded
// from engine.yml.
type EngineConfig struct {
	Recurrence RecurrenceConfig `mapstructure:"recurrence"`
	Split      SplitConfig      `mapstructure:"split"`
	GoLive     GoLiveConfig     `mapstructure:"golive"`
	Commission CommissionConfig `mapstructure:"commission"`
}

type RecurrenceConfig struct {
	DefaultMaxOccurrences int `mapstructure:"defaultMaxOccurrences"`
}

type SplitConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
}

type GoLiveConfig struct {
	OffsetDays    int      `mapstructure:"offsetDays"`
	NotifyUserIDs []string `mapstructure:"notifyUserIDs"`
}

type CommissionConfig struct {
	DueDays           int      `mapstructure:"dueDays"`
	ApproverUserIDs   []string `mapstructure:"approverUserIDs"`
	AccountCategoryID string   `mapstructure:"accountCategoryID"`
	BankAccountID     string   `mapstructure:"bankAccountID"`
	CostCenterID      string   `mapstructure:"costCenterID"`
	PaymentMethod     string   `mapstructure:"paymentMethod"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Recurrence: RecurrenceConfig{DefaultMaxOccurrences: 12},
		Split:      SplitConfig{Tolerance: 0.01},
		GoLive:     GoLiveConfig{OffsetDays: 15},
		Commission: CommissionConfig{DueDays: 30, PaymentMethod: "bank_transfer"},
	}
}

type engineFile struct {
	Engine EngineConfig `mapstructure:"engine"`
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewEngineConfigHolder reads engine.yml and keeps it current on change.
func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/contractledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CONTRACTLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.recurrence.defaultMaxOccurrences", defaults.Recurrence.DefaultMaxOccurrences)
	v.SetDefault("engine.split.tolerance", defaults.Split.Tolerance)
	v.SetDefault("engine.golive.offsetDays", defaults.GoLive.OffsetDays)
	v.SetDefault("engine.golive.notifyUserIDs", []string{})
	v.SetDefault("engine.commission.dueDays", defaults.Commission.DueDays)
	v.SetDefault("engine.commission.approverUserIDs", []string{})
	v.SetDefault("engine.commission.paymentMethod", defaults.Commission.PaymentMethod)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg, err := decodeEngineConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticEngineConfigHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeEngineConfig(v)
		if err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticEngineConfigHolder wraps a fixed config, mainly for tests.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(normalizeEngineConfig(cfg))
	return holder
}

func (h *EngineConfigHolder) Get() EngineConfig {
	if h == nil {
		return DefaultEngineConfig()
	}
	return h.current.Load().(EngineConfig)
}

func decodeEngineConfig(v *viper.Viper) (EngineConfig, error) {
	var file engineFile
	if err := v.Unmarshal(&file); err != nil {
		return EngineConfig{}, err
	}
	cfg := normalizeEngineConfig(file.Engine)
	if err := validateEngineConfig(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

func normalizeEngineConfig(cfg EngineConfig) EngineConfig {
	defaults := DefaultEngineConfig()
	if cfg.Recurrence.DefaultMaxOccurrences <= 0 {
		cfg.Recurrence.DefaultMaxOccurrences = defaults.Recurrence.DefaultMaxOccurrences
	}
	if cfg.Split.Tolerance <= 0 {
		cfg.Split.Tolerance = defaults.Split.Tolerance
	}
	if strings.TrimSpace(cfg.Commission.PaymentMethod) == "" {
		cfg.Commission.PaymentMethod = defaults.Commission.PaymentMethod
	}
	return cfg
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.GoLive.OffsetDays < 0 {
		return errors.New("engine.golive.offsetDays cannot be negative")
	}
	if cfg.Commission.DueDays < 0 {
		return errors.New("engine.commission.dueDays cannot be negative")
	}
	if cfg.Split.Tolerance >= 1 {
		return errors.New("engine.split.tolerance must be below 1")
	}
	for _, raw := range []string{
		cfg.Commission.AccountCategoryID,
		cfg.Commission.BankAccountID,
		cfg.Commission.CostCenterID,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := snowflake.ParseString(strings.TrimSpace(raw)); err != nil {
			return errors.New("engine.commission ids must be numeric")
		}
	}
	return nil
}

// ParseIDs converts configured user ids, skipping blanks and invalid entries.
func ParseIDs(raw []string) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id == 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

// ParseOptionalID converts a configured id, returning nil when unset.
func ParseOptionalID(raw string) *snowflake.ID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}
