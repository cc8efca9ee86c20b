package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr string `yaml:"addr"`
	Log  Log    `yaml:"log"`
	Room Room   `yaml:"room"`
}

// Log 日志输出与滚动策略
type Log struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Stderr     bool   `yaml:"stderr"`
}

// Room 房间运行参数
type Room struct {
	TicksPerSecond      int    `yaml:"ticks_per_second"`
	Strict              bool   `yaml:"strict"`
	HeartbeatEveryTicks int    `yaml:"heartbeat_every_ticks"` // 0 关闭心跳
	SnapshotEveryTicks  int    `yaml:"snapshot_every_ticks"`  // 0 关闭周期快照
	DataDir             string `yaml:"data_dir"`              // 为空则不持久化
	DiffLog             bool   `yaml:"diff_log"`
	DefaultRoom         string `yaml:"default_room"`
	SendQueue           int    `yaml:"send_queue"`
	InboundQueue        int    `yaml:"inbound_queue"`
	MaxEntities         int    `yaml:"max_entities"` // 0 不限制
}

func Default() Config {
	return Config{
		Addr: ":8080",
		Log: Log{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Room: Room{
			TicksPerSecond:      20,
			HeartbeatEveryTicks: 100,
			SnapshotEveryTicks:  1200,
			DefaultRoom:         "room-1",
			SendQueue:           64,
			InboundQueue:        256,
		},
	}
}

// Load 读取 YAML，未出现的字段保持默认值
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate 返回全部不合法字段
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("addr must not be empty"))
	}
	if !levels[c.Log.Level] {
		err = multierr.Append(err, fmt.Errorf("log.level %q must be one of debug/info/warn/error", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		err = multierr.Append(err, errors.New("log rotation limits must not be negative"))
	}
	r := c.Room
	if r.TicksPerSecond <= 0 || r.TicksPerSecond > 1000 {
		err = multierr.Append(err, fmt.Errorf("room.ticks_per_second %d out of range (1..1000)", r.TicksPerSecond))
	}
	if r.HeartbeatEveryTicks < 0 || r.SnapshotEveryTicks < 0 || r.MaxEntities < 0 {
		err = multierr.Append(err, errors.New("room tick intervals and max_entities must not be negative"))
	}
	if r.SendQueue <= 0 {
		err = multierr.Append(err, fmt.Errorf("room.send_queue must be positive, got %d", r.SendQueue))
	}
	if r.InboundQueue <= 0 {
		err = multierr.Append(err, fmt.Errorf("room.inbound_queue must be positive, got %d", r.InboundQueue))
	}
	if r.DefaultRoom == "" {
		err = multierr.Append(err, errors.New("room.default_room must not be empty"))
	}
	if r.DiffLog && r.DataDir == "" {
		err = multierr.Append(err, errors.New("room.diff_log requires room.data_dir"))
	}
	return err
}
