package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/vitalscan/internal/capture"
	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/history"
	"codeberg.org/mutker/vitalscan/internal/quality"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/server"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

const (
	DefaultLogLevel = string(LogLevelInfo)
	DefaultListen   = "127.0.0.1:8080"

	defaultConfigName = "vitalscan"
	defaultConfigDir  = "/etc"
)

// User is the subject of a terminal scan.
type User struct {
	Name     string  `mapstructure:"name"`
	Age      int     `mapstructure:"age"`
	Gender   string  `mapstructure:"gender"`
	HeightCM float64 `mapstructure:"height_cm"`
	WeightKG float64 `mapstructure:"weight_kg"`
	Posture  string  `mapstructure:"posture"`
}

func (u User) Details() wellness.UserDetails {
	return wellness.UserDetails{
		Name:     u.Name,
		Age:      u.Age,
		Gender:   wellness.Gender(u.Gender),
		HeightCM: u.HeightCM,
		WeightKG: u.WeightKG,
		Posture:  wellness.Posture(u.Posture),
	}
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Serve     bool            `mapstructure:"serve"`
	Listen    string          `mapstructure:"listen"`
	Server    server.Config   `mapstructure:"server"`
	Scan      scan.Config     `mapstructure:"scan"`
	Quality   quality.Config  `mapstructure:"quality"`
	Estimator wellness.Config `mapstructure:"estimator"`
	History   history.Config  `mapstructure:"history"`
	Capture   capture.Config  `mapstructure:"capture"`
	User      User            `mapstructure:"user"`
}

// Load reads defaults, the TOML config file, VITALSCAN_* environment
// variables and command line flags, in increasing priority.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: DefaultEnvPrefix,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o *options) error {
	path := o.configPath
	if path == "" {
		path, _ = fs.GetString("config")
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("serve", false)
	v.SetDefault("listen", DefaultListen)

	srv := server.DefaultConfig()
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.heartbeat", srv.Heartbeat)
	v.SetDefault("server.retention", srv.Retention)
	v.SetDefault("server.max_lifetime", srv.MaxLifetime)
	v.SetDefault("server.acquire_timeout", srv.AcquireTimeout)
	v.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)

	s := scan.DefaultConfig()
	v.SetDefault("scan.duration", s.Duration)
	v.SetDefault("scan.progress_interval", s.ProgressInterval)
	v.SetDefault("scan.sample_interval", s.SampleInterval)
	v.SetDefault("scan.tip_interval", s.TipInterval)
	v.SetDefault("scan.completion_delay", s.CompletionDelay)
	v.SetDefault("scan.frame_timeout", s.FrameTimeout)
	v.SetDefault("scan.max_missed_frames", s.MaxMissedFrames)
	v.SetDefault("scan.tips", s.Tips)

	q := quality.DefaultConfig()
	v.SetDefault("quality.poor_light_threshold", q.PoorLightThreshold)
	v.SetDefault("quality.good_light_threshold", q.GoodLightThreshold)
	v.SetDefault("quality.motion_threshold", q.MotionThreshold)
	v.SetDefault("quality.sample_stride", q.SampleStride)
	v.SetDefault("quality.face_in_frame_probability", q.FaceInFrameProbability)

	e := wellness.DefaultConfig()
	v.SetDefault("estimator.variance_scale", e.VarianceScale)
	v.SetDefault("estimator.systolic_variance", e.SystolicVariance)
	v.SetDefault("estimator.diastolic_variance", e.DiastolicVariance)
	v.SetDefault("estimator.heart_rate_variance", e.HeartRateVariance)
	v.SetDefault("estimator.stress_variance", e.StressVariance)
	v.SetDefault("estimator.respiratory_variance", e.RespiratoryVariance)

	h := history.DefaultConfig()
	v.SetDefault("history.enabled", h.Enabled)
	v.SetDefault("history.db_path", h.DBPath)
	v.SetDefault("history.backup_dir", h.BackupDir)
	v.SetDefault("history.batch_size", h.BatchSize)
	v.SetDefault("history.batch_timeout", h.BatchTimeout)

	c := capture.DefaultConfig()
	v.SetDefault("capture.driver", c.Driver)
	v.SetDefault("capture.device_id", c.DeviceID)
	v.SetDefault("capture.width", c.Width)
	v.SetDefault("capture.height", c.Height)
	v.SetDefault("capture.brightness", c.Brightness)

	v.SetDefault("user.name", "")
	v.SetDefault("user.age", 0)
	v.SetDefault("user.gender", "")
	v.SetDefault("user.height_cm", 0.0)
	v.SetDefault("user.weight_kg", 0.0)
	v.SetDefault("user.posture", string(wellness.Sitting))
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("vitalscan", pflag.ContinueOnError)

	fs.String("config", "", "Path to the TOML config file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("serve", false, "Run the HTTP API instead of a single terminal scan")
	fs.String("listen", DefaultListen, "HTTP listen address")
	fs.String("capture", capture.DriverSynthetic, "Capture driver (synthetic, webcam)")
	fs.Int("device", 0, "Webcam device id")
	fs.Duration("duration", scan.DefaultConfig().Duration, "Scan duration")
	fs.Bool("history", false, "Record finished scans")
	fs.String("history-db", history.DefaultConfig().DBPath, "Scan history database path")

	fs.String("name", "", "Name of the person scanned")
	fs.Int("age", 0, "Age in years")
	fs.String("gender", "", "Gender (male, female, other)")
	fs.Float64("height", 0, "Height in centimetres")
	fs.Float64("weight", 0, "Weight in kilograms")
	fs.String("posture", string(wellness.Sitting), "Posture (sitting, standing)")

	return fs
}

var flagKeys = map[string]string{
	"log-level":  "log_level",
	"serve":      "serve",
	"listen":     "listen",
	"capture":    "capture.driver",
	"device":     "capture.device_id",
	"duration":   "scan.duration",
	"history":    "history.enabled",
	"history-db": "history.db_path",
	"name":       "user.name",
	"age":        "user.age",
	"gender":     "user.gender",
	"height":     "user.height_cm",
	"weight":     "user.weight_kg",
	"posture":    "user.posture",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every section. The user section is only checked when a
// terminal scan needs it.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Serve {
		if c.Listen == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, "listen address is required in serve mode")
		}
		if err := c.Server.Validate(); err != nil {
			return errFactory.Wrap(errors.ErrInvalidConfig, err).WithMessage("Invalid server configuration")
		}
	}

	sections := []struct {
		name     string
		validate func() error
	}{
		{"scan", c.Scan.Validate},
		{"quality", c.Quality.Validate},
		{"estimator", c.Estimator.Validate},
		{"history", c.History.Validate},
		{"capture", c.Capture.Validate},
	}

	for _, s := range sections {
		if err := s.validate(); err != nil {
			return errFactory.Wrap(errors.ErrInvalidConfig, err).WithMessage("Invalid " + s.name + " configuration")
		}
	}

	return nil
}
