package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode      string          `mapstructure:"mode"`
	Room      string          `mapstructure:"room"`
	Log       LogConfig       `mapstructure:"log"`
	Signaling SignalingConfig `mapstructure:"signaling"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	ICE       ICEConfig       `mapstructure:"ice"`
	Media     MediaConfig     `mapstructure:"media"`
	Control   ControlConfig   `mapstructure:"control"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SignalingConfig struct {
	URL        string        `mapstructure:"url"`
	Codec      string        `mapstructure:"codec"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	ReadLimit  int64         `mapstructure:"read_limit"`
}

type ProfileConfig struct {
	UserID      string `mapstructure:"user_id"`
	DisplayName string `mapstructure:"display_name"`
	AvatarURL   string `mapstructure:"avatar_url"`
}

type TURNConfig struct {
	URL        string `mapstructure:"url"`
	Username   string `mapstructure:"username"`
	Credential string `mapstructure:"credential"`
}

type ICEConfig struct {
	STUN       []string   `mapstructure:"stun"`
	TURN       TURNConfig `mapstructure:"turn"`
	ForceRelay bool       `mapstructure:"force_relay"`
	UDPPort    int        `mapstructure:"udp_port"`
	PublicIP   string     `mapstructure:"public_ip"`
	Loopback   bool       `mapstructure:"loopback"`
}

type MediaConfig struct {
	VideoFile  string `mapstructure:"video_file"`
	AudioFile  string `mapstructure:"audio_file"`
	ToggleMode string `mapstructure:"toggle_mode"`
}

type ControlConfig struct {
	Addr string `mapstructure:"addr"`
}

type ReconnectConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Burst    int           `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("signaling.url", "ws://localhost:3030/ws")
	v.SetDefault("signaling.codec", "json")
	v.SetDefault("signaling.ping_period", "54s")
	v.SetDefault("signaling.read_limit", 65536)
	v.SetDefault("profile.display_name", "guest")
	v.SetDefault("ice.stun", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
		"stun:stun2.l.google.com:19302",
	})
	v.SetDefault("ice.udp_port", 0)
	v.SetDefault("ice.loopback", false)
	v.SetDefault("media.video_file", "media/output.ivf")
	v.SetDefault("media.audio_file", "media/output.ogg")
	v.SetDefault("media.toggle_mode", "soft")
	v.SetDefault("control.addr", "127.0.0.1:8089")
	v.SetDefault("reconnect.interval", "5s")
	v.SetDefault("reconnect.burst", 2)
}

// Load reads path, or config/config.<CONFIG_ENV>.yaml when path is empty.
// CAMJAM_* environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("camjam")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName := path
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("signaling", cfg.Signaling.URL).Str("toggle_mode", cfg.Media.ToggleMode).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Signaling.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("signaling.codec: unsupported %q", c.Signaling.Codec)
	}
	switch c.Media.ToggleMode {
	case "soft", "hard":
	default:
		return fmt.Errorf("media.toggle_mode: unsupported %q", c.Media.ToggleMode)
	}
	if c.Signaling.URL == "" {
		return errors.New("signaling.url is required")
	}
	if c.ICE.UDPPort < 0 || c.ICE.UDPPort > 65535 {
		return fmt.Errorf("ice.udp_port: out of range %d", c.ICE.UDPPort)
	}
	return nil
}
