package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Thresholds drive the automatic lamp and the over-temperature alarm.
type Thresholds struct {
	LampOn  float64 `mapstructure:"lamp_on"`
	LampOff float64 `mapstructure:"lamp_off"`
	TempMax float64 `mapstructure:"temp_max"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{LampOn: 40000, LampOff: 30000, TempMax: 30}
}

// LoadThresholds reads thresholds from an optional YAML/JSON/TOML file.
// KANDANG_LAMP_ON, KANDANG_LAMP_OFF and KANDANG_TEMP_MAX override file values.
func LoadThresholds(path string) (Thresholds, error) {
	def := DefaultThresholds()

	v := viper.New()
	v.SetDefault("lamp_on", def.LampOn)
	v.SetDefault("lamp_off", def.LampOff)
	v.SetDefault("temp_max", def.TempMax)
	v.SetEnvPrefix("KANDANG")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Thresholds{}, fmt.Errorf("read thresholds %q: %w", path, err)
		}
	}

	t := Thresholds{
		LampOn:  v.GetFloat64("lamp_on"),
		LampOff: v.GetFloat64("lamp_off"),
		TempMax: v.GetFloat64("temp_max"),
	}
	if t.LampOff > t.LampOn {
		return Thresholds{}, fmt.Errorf("lamp_off (%v) must be <= lamp_on (%v)", t.LampOff, t.LampOn)
	}
	return t, nil
}
