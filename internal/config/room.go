package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/iliyamo/chatter-pad/internal/room"
)

// RoomConfig tunes the realtime room. Variables are prefixed with ROOM_,
// e.g. ROOM_TICK_INTERVAL=5s.
type RoomConfig struct {
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"5s"`
	TickAmount      int64         `envconfig:"TICK_AMOUNT" default:"10"`
	DrinkCost       int64         `envconfig:"DRINK_COST" default:"5"`
	ProbeInterval   time.Duration `envconfig:"PROBE_INTERVAL" default:"10s"`
	ChatHistory     int           `envconfig:"CHAT_HISTORY" default:"100"`
	MaxChatLength   int           `envconfig:"MAX_CHAT_LENGTH" default:"500"`
	LeaderboardSize int           `envconfig:"LEADERBOARD_SIZE" default:"5"`
	PersistQueue    int           `envconfig:"PERSIST_QUEUE" default:"1024"`
	SendBuffer      int           `envconfig:"SEND_BUFFER" default:"256"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
}

// LoadRoomConfig reads ROOM_* variables.
func LoadRoomConfig() (RoomConfig, error) {
	var c RoomConfig
	if err := envconfig.Process("room", &c); err != nil {
		return RoomConfig{}, err
	}
	return c, nil
}

// Options converts the config into room options.
func (c RoomConfig) Options() room.Options {
	return room.Options{
		TickAmount:      c.TickAmount,
		DrinkCost:       c.DrinkCost,
		ChatHistory:     c.ChatHistory,
		MaxChatLength:   c.MaxChatLength,
		LeaderboardSize: c.LeaderboardSize,
	}
}
