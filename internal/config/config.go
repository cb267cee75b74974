package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	// RoomCapacity players start a game; rooms never grow past it.
	RoomCapacity int

	// FirstClickSafe defers mine placement so the first revealed cell and its
	// neighbors are never mined.
	FirstClickSafe bool

	// EndOnDisconnect ends a running game when any member drops; off, the
	// room survives with a gap until the player reconnects.
	EndOnDisconnect bool

	// EvictAfter is the grace period before an ended or emptied room is
	// removed from the registry.
	EvictAfter time.Duration

	// WriteTimeout bounds a single websocket frame delivery.
	WriteTimeout time.Duration
}

func getenvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func Load() Config {
	return Config{
		HTTPAddr:        getenvStr("HTTP_ADDR", ":8080"),
		RoomCapacity:    getenvInt("ROOM_CAPACITY", 2),
		FirstClickSafe:  getenvBool("FIRST_CLICK_SAFE", true),
		EndOnDisconnect: getenvBool("END_ON_DISCONNECT", false),
		EvictAfter:      time.Duration(getenvInt("EVICT_AFTER_SEC", 60)) * time.Second,
		WriteTimeout:    time.Duration(getenvInt("WRITE_TIMEOUT_SEC", 3)) * time.Second,
	}
}
