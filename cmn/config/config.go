// Package config loads the bridge's INI configuration file. This is the
// one external collaborator spec.md §1 scopes config-file I/O out as,
// but §6 still pins its exact recognized shape, so it is implemented
// here rather than left to the host-plugin shim.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"time"

	"gopkg.in/ini.v1"

	"github.com/arcbridge/pipebridge/cmn/cos"
)

// Defaults per spec.md §4.7/§4.8.
const (
	DefaultMaxClients         = 32
	DefaultClientTimeoutTimer = 120 * time.Second
	DefaultMsgQueueSize       = 64
)

type General struct {
	Enabled bool
	ArcDPS  bool
	Extras  bool
}

type Server struct {
	MaxClients         int
	ClientTimeoutTimer time.Duration
	MsgQueueSize       int
}

type Config struct {
	General General
	Server  Server
}

// Default returns the configuration a bridge instance runs with when
// no INI file is given.
func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Server: Server{
			MaxClients:         DefaultMaxClients,
			ClientTimeoutTimer: DefaultClientTimeoutTimer,
			MsgQueueSize:       DefaultMsgQueueSize,
		},
	}
}

// Load parses path as INI. Unknown sections and unknown keys are
// ignored; malformed values within recognized keys are skipped and the
// default for that key applies — the file as a whole is never rejected
// for a single bad line.
func Load(path string) (*Config, error) {
	cfg := defaults()

	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:                  true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, err
	}

	var errs cos.Errs

	if sec, err := f.GetSection("general"); err == nil {
		cfg.General.Enabled = keyBool(sec, "enabled", cfg.General.Enabled, &errs)
		cfg.General.ArcDPS = keyBool(sec, "arcDPS", cfg.General.ArcDPS, &errs)
		cfg.General.Extras = keyBool(sec, "extras", cfg.General.Extras, &errs)
	}

	if sec, err := f.GetSection("server"); err == nil {
		cfg.Server.MaxClients = keyUint(sec, "maxClients", cfg.Server.MaxClients, &errs)
		if ms := keyUint(sec, "clientTimeoutTimer", int(cfg.Server.ClientTimeoutTimer/time.Millisecond), &errs); ms > 0 {
			cfg.Server.ClientTimeoutTimer = time.Duration(ms) * time.Millisecond
		}
		cfg.Server.MsgQueueSize = keyUint(sec, "msgQueueSize", cfg.Server.MsgQueueSize, &errs)
	}

	// malformed individual lines are collected and then discarded, never
	// failing Load, per spec.md §7 ConfigParse: "malformed lines are
	// skipped silently".
	_ = errs.Err()

	return cfg, nil
}

func keyBool(sec *ini.Section, name string, dflt bool, errs *cos.Errs) bool {
	if !sec.HasKey(name) {
		return dflt
	}
	v, err := sec.Key(name).Bool()
	if err != nil {
		errs.Add(err)
		return dflt
	}
	return v
}

func keyUint(sec *ini.Section, name string, dflt int, errs *cos.Errs) int {
	if !sec.HasKey(name) {
		return dflt
	}
	v, err := sec.Key(name).Uint()
	if err != nil {
		errs.Add(err)
		return dflt
	}
	return int(v)
}
