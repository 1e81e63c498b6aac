package config

import "time"

// StorageMongo / StorageMemory values of Chat.Storage
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port      string          `mapstructure:"port"`
	Storage   string          `mapstructure:"storage"`
	MongoSQL  DatabaseConfig  `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	PprofAddr string          `mapstructure:"pprof_addr"`
}

// RedisConfig definition redis setting, sentinel when SentinelAddrs is set
type RedisConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Addr          string   `mapstructure:"addr"`
	RedisDB       int      `mapstructure:"redis_db"`
	MasterName    string   `mapstructure:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition chat event stream
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// WebSocketConfig definition per connection limits
type WebSocketConfig struct {
	SendBuffer     int           `mapstructure:"send_buffer"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

// JWTConfig definition token secret shared with the member service
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// ApplyDefaults fill zero values
func (c *Chat) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "8082"
	}
	if c.Storage == "" {
		c.Storage = StorageMongo
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "chat.events"
	}
	if c.Redis.MasterName == "" {
		c.Redis.MasterName = "mymaster"
	}
	c.WebSocket.ApplyDefaults()
}

// ApplyDefaults fill zero values
func (w *WebSocketConfig) ApplyDefaults() {
	if w.SendBuffer <= 0 {
		w.SendBuffer = 64
	}
	if w.SendTimeout <= 0 {
		w.SendTimeout = 10 * time.Second
	}
	if w.PingInterval <= 0 {
		w.PingInterval = 30 * time.Second
	}
	if w.ReadTimeout <= 0 {
		w.ReadTimeout = 60 * time.Second
	}
	// pong 必須在 read timeout 之前回來
	if w.PingInterval >= w.ReadTimeout {
		w.PingInterval = w.ReadTimeout * 9 / 10
	}
	if w.MaxMessageSize <= 0 {
		w.MaxMessageSize = 64 << 10
	}
}
