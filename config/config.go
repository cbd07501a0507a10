package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so intervals can be written as "5s" or "3h" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Web        WebConfig        `yaml:"web"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	ShiftClock ShiftClockConfig `yaml:"shift_clock"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Machines   []MachineConfig  `yaml:"machines"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TopicPrefix is prepended to "<machine>/<tag>" when subscribing.
	TopicPrefix string `yaml:"topic_prefix"`
	// StaleAfter bounds how old a cached tag value may be before reads fail.
	StaleAfter Duration `yaml:"stale_after"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	DrainInterval Duration `yaml:"drain_interval"`
}

type SMTPConfig struct {
	Host                 string   `yaml:"host"`
	Port                 int      `yaml:"port"`
	Username             string   `yaml:"username"`
	Password             string   `yaml:"password"`
	Sender               string   `yaml:"sender"`
	ProductionRecipients []string `yaml:"production_recipients"`
	ErrorRecipients      []string `yaml:"error_recipients"`
	Workers              int      `yaml:"workers"`
}

type ShiftClockConfig struct {
	// CutoverHour is the hour the production day rolls over (industrial date).
	CutoverHour int `yaml:"cutover_hour"`
	// GraceSeconds keeps timestamps just past the cutover on the previous day.
	GraceSeconds int `yaml:"grace_seconds"`
	DayStartHour int `yaml:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour"`
}

type DedupConfig struct {
	Window Duration `yaml:"window"`
}

type MachineConfig struct {
	Name string `yaml:"name"`
	// Status is carried into snapshots as-is ("active", "maintenance", ...).
	Status string `yaml:"status"`
	// Multiplier converts raw counter strokes into cups (cavities per stroke).
	Multiplier float64          `yaml:"multiplier"`
	Tags       TagConfig        `yaml:"tags"`
	Connection ConnectionConfig `yaml:"connection"`
	CupSizes   CupSizeConfig    `yaml:"cup_sizes"`
	// LotCheckDelay is how long after a coil change to verify the lot was advanced.
	LotCheckDelay Duration `yaml:"lot_check_delay"`
}

type TagConfig struct {
	Counter     string `yaml:"counter"`
	Feed        string `yaml:"feed"`
	CoilStatus  string `yaml:"coil_status"`
	CoilTrigger string `yaml:"coil_trigger"`
}

type ConnectionConfig struct {
	ReadInterval Duration `yaml:"read_interval"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	RetryDelay   Duration `yaml:"retry_delay"`
	MaxRetryWait Duration `yaml:"max_retry_wait"`
}

type CupSizeConfig struct {
	Tolerance float64            `yaml:"tolerance"`
	Sizes     map[string]float64 `yaml:"sizes"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 15789
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "cupline.db"
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "cupline"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "plc"
	}
	if c.MQTT.StaleAfter == 0 {
		c.MQTT.StaleAfter = Duration(30 * time.Second)
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "cupline.production"
	}
	if c.Kafka.DrainInterval == 0 {
		c.Kafka.DrainInterval = Duration(10 * time.Second)
	}
	if c.SMTP.Workers == 0 {
		c.SMTP.Workers = 2
	}
	if c.ShiftClock.CutoverHour == 0 {
		c.ShiftClock.CutoverHour = 6
	}
	if c.ShiftClock.GraceSeconds == 0 {
		c.ShiftClock.GraceSeconds = 30
	}
	if c.ShiftClock.DayStartHour == 0 {
		c.ShiftClock.DayStartHour = 6
	}
	if c.ShiftClock.DayEndHour == 0 {
		c.ShiftClock.DayEndHour = 18
	}
	if c.Dedup.Window == 0 {
		c.Dedup.Window = Duration(10 * time.Minute)
	}
	for i := range c.Machines {
		m := &c.Machines[i]
		if m.Status == "" {
			m.Status = "active"
		}
		if m.Multiplier == 0 {
			m.Multiplier = 1
		}
		if m.Tags.Counter == "" {
			m.Tags.Counter = "Count_discharge"
		}
		if m.Tags.Feed == "" {
			m.Tags.Feed = "Feed_Progression_INCH"
		}
		if m.Tags.CoilStatus == "" {
			m.Tags.CoilStatus = "Bobina_Consumida"
		}
		if m.Tags.CoilTrigger == "" {
			m.Tags.CoilTrigger = "Bobina_Trocada"
		}
		if m.Connection.ReadInterval == 0 {
			m.Connection.ReadInterval = Duration(5 * time.Second)
		}
		if m.Connection.ReadTimeout == 0 {
			m.Connection.ReadTimeout = Duration(5 * time.Second)
		}
		if m.Connection.RetryDelay == 0 {
			m.Connection.RetryDelay = Duration(5 * time.Second)
		}
		if m.Connection.MaxRetryWait == 0 {
			m.Connection.MaxRetryWait = Duration(30 * time.Minute)
		}
		if m.CupSizes.Tolerance == 0 {
			m.CupSizes.Tolerance = 0.01
		}
		if m.LotCheckDelay == 0 {
			m.LotCheckDelay = Duration(3 * time.Hour)
		}
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if len(c.Machines) == 0 {
		return fmt.Errorf("no machines configured")
	}
	seen := make(map[string]bool)
	for _, m := range c.Machines {
		if m.Name == "" {
			return fmt.Errorf("machine with empty name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate machine name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Multiplier <= 0 {
			return fmt.Errorf("machine %s: multiplier must be positive", m.Name)
		}
	}
	if c.ShiftClock.CutoverHour < 0 || c.ShiftClock.CutoverHour > 23 {
		return fmt.Errorf("shift_clock.cutover_hour out of range: %d", c.ShiftClock.CutoverHour)
	}
	return nil
}

// Machine returns the config block for a named machine, or nil.
func (c *Config) Machine(name string) *MachineConfig {
	for i := range c.Machines {
		if c.Machines[i].Name == name {
			return &c.Machines[i]
		}
	}
	return nil
}
