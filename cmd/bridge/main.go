// Package bridge is the process entry point for the arcdps/Unofficial
// Extras pipe bridge: load configuration, wire the squad roster,
// message tracking, and pipe server together, and run until signaled.
// Grounded on cmd/authn/main.go's startup shape; unlike the original
// DLL (loaded/unloaded by DLL_PROCESS_ATTACH/DETACH, spec.md §9 "Global
// mutable state... becomes explicit context"), every piece of state
// here is constructed explicitly in main and handed down rather than
// held in process-wide globals.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/arcbridge/pipebridge/adapter"
	"github.com/arcbridge/pipebridge/cmn/config"
	"github.com/arcbridge/pipebridge/cmn/cos"
	"github.com/arcbridge/pipebridge/cmn/nlog"
	"github.com/arcbridge/pipebridge/hk"
	"github.com/arcbridge/pipebridge/pipe"
	"github.com/arcbridge/pipebridge/squad"
	"github.com/arcbridge/pipebridge/track"
	"github.com/arcbridge/pipebridge/wire"
)

const (
	svcName        = "pipebridge"
	majorAPIVer    = 1
	minorAPIVer    = 0
	reapInterval   = 30 * time.Second
	envConfigPath  = "PIPEBRIDGE_CONFIG"
	envPipePath    = "PIPEBRIDGE_PIPE"
	envLogDir      = "PIPEBRIDGE_LOG_DIR"
	defaultPipeDir = "/tmp/pipebridge"
)

var (
	build     string
	buildtime string

	configPath string
	pipePath   string
)

func init() {
	flag.StringVar(&configPath, "config", "", svcName+" INI configuration file")
	flag.StringVar(&pipePath, "pipe", "", svcName+" named-pipe/socket path")
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		printVer()
		os.Exit(0)
	}

	flag.Parse()
	installSignalHandler()

	if configPath == "" {
		configPath = os.Getenv(envConfigPath)
	}
	if pipePath == "" {
		pipePath = os.Getenv(envPipePath)
	}
	if pipePath == "" {
		pipePath = filepath.Join(defaultPipeDir, "bridge.sock")
	}

	logDir := os.Getenv(envLogDir)
	if logDir == "" {
		logDir = filepath.Dir(pipePath)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		cos.ExitLogf("failed to create log dir %q: %v", logDir, err)
	}
	nlog.SetPre(logDir, "bridge")

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			cos.ExitLogf("failed to load configuration from %q: %v", configPath, err)
		}
		cfg = loaded
	} else {
		nlog.Warningf("no -config given and %s unset, running with defaults", envConfigPath)
		cfg = config.Default()
	}

	if err := os.MkdirAll(filepath.Dir(pipePath), 0o755); err != nil {
		cos.ExitLogf("failed to create pipe dir for %q: %v", pipePath, err)
	}

	nlog.Infof("Starting %s %s (build %s)", svcName, versionString(), buildtime)

	roster := squad.New()
	squadHandler := squad.NewHandler(roster)
	tracking := track.New()

	state := newBridgeState(cfg)
	snap := &squadSnapshotter{roster: roster, self: state}

	handler := pipe.NewHandler(pipePath, cfg.Server.MaxClients, pipe.Config{
		MsgQueueSize:  cfg.Server.MsgQueueSize,
		ClientTimeout: cfg.Server.ClientTimeoutTimer,
	}, tracking, snap, state.bridgeInfo)
	handler.Start()

	// The host-plugin shim (out of scope, spec.md §1/§4.9) calls into
	// hostAdapter.Combat/SquadUpdate/... from the arcdps and Unofficial
	// Extras callback threads; it is constructed here so the squad
	// roster and message fan-out it drives are wired end to end.
	hostAdapter := adapter.New(squadHandler, handler)
	hostAdapter.OnSelfChange(state.setSelf)

	housekeeper := hk.New()
	go housekeeper.Run()
	housekeeper.Reg("pipe-reap", func(time.Time) time.Duration {
		handler.Reap()
		return reapInterval
	}, reapInterval)

	go logFlush()

	waitForShutdown()

	nlog.Infof("Stopping %s", svcName)
	housekeeper.Stop()
	handler.Stop()
	nlog.Flush(nlog.ActExit)
}

// bridgeState owns the self account name, which the (out-of-scope)
// host shim refreshes through the adapter's OnSelfChange hook, and
// builds the BridgeInfo reported to newly-connecting clients. That
// BridgeInfo takes its loaded/found flags from the configuration on
// every call; nothing changes them after start, and its validator
// stays at wire.ValidatorStart.
type bridgeState struct {
	cfg *config.Config

	mu   sync.RWMutex
	self string
}

func newBridgeState(cfg *config.Config) *bridgeState {
	return &bridgeState{cfg: cfg}
}

func (s *bridgeState) setSelf(accountName string) {
	s.mu.Lock()
	s.self = accountName
	s.mu.Unlock()
}

func (s *bridgeState) selfAccountName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

func (s *bridgeState) bridgeInfo() wire.BridgeInfo {
	return wire.BridgeInfo{
		MajorAPIVersion: majorAPIVer,
		MinorAPIVersion: minorAPIVer,
		Validator:       wire.ValidatorStart,
		Version:         versionString(),
		ArcLoaded:       s.cfg.General.ArcDPS,
		ExtrasFound:     s.cfg.General.Extras,
		ExtrasLoaded:    s.cfg.General.Extras,
	}
}

// squadSnapshotter implements pipe.Snapshotter.
type squadSnapshotter struct {
	roster *squad.Container
	self   *bridgeState
}

func (s *squadSnapshotter) SelfAccountName() string         { return s.self.selfAccountName() }
func (s *squadSnapshotter) SquadSnapshot() *squad.Container { return s.roster }

func installSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	shutdownCh = c
}

var shutdownCh chan os.Signal

func waitForShutdown() {
	<-shutdownCh
}

func logFlush() {
	for {
		time.Sleep(time.Minute)
		nlog.Flush(nlog.ActNone)
	}
}

func versionString() string {
	return fmt.Sprintf("%d.%d", majorAPIVer, minorAPIVer)
}

func printVer() {
	fmt.Printf("%s version %s (build %s)\n", svcName, versionString(), buildtime)
}
