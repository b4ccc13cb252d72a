package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StoreProfile is the per-shop presentation data printed on order slips.
type StoreProfile struct {
	StoreName        string   `mapstructure:"storeName" json:"storeName"`
	StorePhone       string   `mapstructure:"storePhone" json:"storePhone"`
	SlipTitle        string   `mapstructure:"slipTitle" json:"slipTitle"`
	ReceptionMethods []string `mapstructure:"receptionMethods" json:"receptionMethods"`
	DeliveryMethods  []string `mapstructure:"deliveryMethods" json:"deliveryMethods"`
	PaymentOptions   []string `mapstructure:"paymentOptions" json:"paymentOptions"`
	Departments      []string `mapstructure:"departments" json:"departments"`
	FontPath         string   `mapstructure:"fontPath" json:"-"`
}

func DefaultStoreProfile() StoreProfile {
	return StoreProfile{
		StoreName:        "スーパーマーケット玉木屋",
		StorePhone:       "0193-63-2711",
		SlipTitle:        "ご注文承り書（お客様控え）",
		ReceptionMethods: []string{"来店", "電話"},
		DeliveryMethods:  []string{"配達", "店頭"},
		PaymentOptions:   []string{"代スミ", "売掛", "代引"},
		Departments:      []string{"青果", "精肉", "鮮魚", "惣菜", "日配", "食品", "酒", "菓子", "雑貨"},
	}
}

// StoreProfileHolder serves the current profile and swaps it when store.yml
// changes on disk.
type StoreProfileHolder struct {
	current atomic.Value // holds StoreProfile
}

// NewStaticStoreProfileHolder returns a holder that never reloads.
func NewStaticStoreProfileHolder(profile StoreProfile) *StoreProfileHolder {
	holder := &StoreProfileHolder{}
	holder.current.Store(profile)
	return holder
}

func NewStoreProfileHolder(cfg Config, log *zap.Logger) (*StoreProfileHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store.profile")

	v := viper.New()
	if cfg.ProfilePath != "" {
		v.SetConfigFile(cfg.ProfilePath)
	} else {
		v.SetConfigName("store")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/orderdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStoreProfile()
	v.SetDefault("store.storeName", defaults.StoreName)
	v.SetDefault("store.storePhone", defaults.StorePhone)
	v.SetDefault("store.slipTitle", defaults.SlipTitle)
	v.SetDefault("store.receptionMethods", defaults.ReceptionMethods)
	v.SetDefault("store.deliveryMethods", defaults.DeliveryMethods)
	v.SetDefault("store.paymentOptions", defaults.PaymentOptions)
	v.SetDefault("store.departments", defaults.Departments)
	v.SetDefault("store.fontPath", "")

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	profile, err := readStoreProfile(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticStoreProfileHolder(profile)
	if !watch {
		log.Info("store profile file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readStoreProfile(v)
		if err != nil {
			log.Warn("invalid profile ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *StoreProfileHolder) Get() StoreProfile {
	return h.current.Load().(StoreProfile)
}

// readStoreProfile unmarshals through AllSettings so that keys missing from
// the file fall back to their defaults one by one.
func readStoreProfile(v *viper.Viper) (StoreProfile, error) {
	var file struct {
		Store StoreProfile `mapstructure:"store"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return StoreProfile{}, err
	}
	if err := validateStoreProfile(file.Store); err != nil {
		return StoreProfile{}, err
	}
	return file.Store, nil
}

func validateStoreProfile(profile StoreProfile) error {
	if strings.TrimSpace(profile.SlipTitle) == "" {
		return errors.New("store.slipTitle cannot be empty")
	}
	if len(profile.PaymentOptions) == 0 {
		return errors.New("store.paymentOptions cannot be empty")
	}
	if len(profile.Departments) == 0 {
		return errors.New("store.departments cannot be empty")
	}
	return nil
}
