// Package config publishes per-service configuration as retained messages on
// config/<service>, so services can start in any order and still receive
// their config. MCU builds embed defaults; hosts can load a YAML file.
package config

import (
	"context"

	"pulsecode-go/bus"
	"pulsecode-go/services/bridge"
	"pulsecode-go/types"
)

const configPrefix = "config"

// DeviceConfig is one device's full configuration. Nil sections are not
// published.
type DeviceConfig struct {
	Pulsemon *types.PulseConfig `yaml:"pulsemon"`
	Power    *types.PowerConfig `yaml:"power"`
	Pulsegen *types.GenConfig   `yaml:"pulsegen"`
	Bridge   *bridge.Config     `yaml:"bridge"`
}

type Service struct {
	cfg DeviceConfig
}

func New(cfg DeviceConfig) *Service { return &Service{cfg: cfg} }

// Publish emits every non-nil section retained.
func (s *Service) Publish(conn *bus.Connection) {
	if s.cfg.Pulsemon != nil {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "pulsemon"}, *s.cfg.Pulsemon, true))
	}
	if s.cfg.Power != nil {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "power"}, *s.cfg.Power, true))
	}
	if s.cfg.Pulsegen != nil {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "pulsegen"}, *s.cfg.Pulsegen, true))
	}
	if s.cfg.Bridge != nil {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "bridge"}, *s.cfg.Bridge, true))
	}
}

// Start publishes once and returns; retained delivery does the rest.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.Publish(conn)
	println("Info: config published")
}
