package bootstrap

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

type Config struct {
	PeerColor   string `mapstructure:"PEER_COLOR"`
	PeerName    string `mapstructure:"PEER_NAME"`
	RelayUrl    string `mapstructure:"RELAY_URL"`
	Room        string `mapstructure:"ROOM"`
	EventBuffer int    `mapstructure:"EVENT_BUFFER"`
	RelayAddr   string `mapstructure:"RELAY_ADDR"`
	RedisUrl    string `mapstructure:"REDIS_URL"`
	MongoUri    string `mapstructure:"MONGO_URI"`
	MongoDb     string `mapstructure:"MONGO_DB"`
	RefereeAddr string `mapstructure:"REFEREE_ADDR"`
}

var defaults = map[string]any{
	"PEER_COLOR":   "red",
	"PEER_NAME":    "",
	"RELAY_URL":    "ws://localhost:8080/ws",
	"ROOM":         "default",
	"EVENT_BUFFER": 64,
	"RELAY_ADDR":   ":8080",
	"REDIS_URL":    "",
	"MONGO_URI":    "",
	"MONGO_DB":     "ardamas",
	"REFEREE_ADDR": "",
}

// Setup reads cfgPath when it exists; environment variables override the file
// and the defaults.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
