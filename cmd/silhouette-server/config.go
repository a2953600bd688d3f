package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mundrapranay/silhouette-db/internal/server"
	"github.com/mundrapranay/silhouette-db/internal/store"
)

// Peer is a voter the bootstrap node adds once it leads.
type Peer struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config is the node configuration. It is read from an optional YAML file;
// flags given on the command line take precedence.
type Config struct {
	NodeID         string           `yaml:"node_id"`
	ListenAddr     string           `yaml:"listen_addr"`
	GRPCAddr       string           `yaml:"grpc_addr"`
	DataDir        string           `yaml:"data_dir"`
	Bootstrap      bool             `yaml:"bootstrap"`
	StorageBackend string           `yaml:"storage_backend"`
	LogLevel       string           `yaml:"log_level"`
	Peers          []Peer           `yaml:"peers"`
	PIR            server.PIRConfig `yaml:"pir"`
	Raft           RaftConfig       `yaml:"raft"`
}

// RaftConfig holds the Raft timing parameters.
type RaftConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	ElectionTimeout  time.Duration `yaml:"election_timeout"`
	CommitTimeout    time.Duration `yaml:"commit_timeout"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8080",
		GRPCAddr:       "127.0.0.1:9090",
		DataDir:        "./data",
		StorageBackend: store.BackendOKVS,
		LogLevel:       "info",
		PIR:            server.DefaultPIRConfig(),
		Raft: RaftConfig{
			HeartbeatTimeout: 1000 * time.Millisecond,
			ElectionTimeout:  1000 * time.Millisecond,
			CommitTimeout:    50 * time.Millisecond,
		},
	}
}

// loadConfigFile overlays the YAML file at path onto cfg.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// parsePeers parses "id=addr,id=addr".
func parsePeers(s string) ([]Peer, error) {
	var peers []Peer
	for _, spec := range strings.Split(s, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		id, addr, ok := strings.Cut(spec, "=")
		if !ok || id == "" || addr == "" {
			return nil, fmt.Errorf("invalid peer %q (expected id=addr)", spec)
		}
		peers = append(peers, Peer{ID: id, Addr: addr})
	}
	return peers, nil
}

// loadConfig builds the configuration from defaults, the file named by
// -config and the flags that were set explicitly, in that order.
func loadConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("silhouette-server", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	nodeID := fs.String("node-id", "", "Unique ID for this node")
	listenAddr := fs.String("listen-addr", "", "Address to listen for Raft communication")
	grpcAddr := fs.String("grpc-addr", "", "Address to listen for gRPC API")
	dataDir := fs.String("data-dir", "", "Directory to store Raft logs and snapshots")
	bootstrap := fs.Bool("bootstrap", false, "Bootstrap a new cluster (first node)")
	peers := fs.String("peers", "", "Peers the bootstrap node adds, as id=addr,id=addr")
	storageBackend := fs.String("storage-backend", "", "Storage backend: 'okvs' or 'kvs' (default: okvs)")
	logLevel := fs.String("log-level", "", "Log level: trace, debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "node-id":
			cfg.NodeID = *nodeID
		case "listen-addr":
			cfg.ListenAddr = *listenAddr
		case "grpc-addr":
			cfg.GRPCAddr = *grpcAddr
		case "data-dir":
			cfg.DataDir = *dataDir
		case "bootstrap":
			cfg.Bootstrap = *bootstrap
		case "storage-backend":
			cfg.StorageBackend = *storageBackend
		case "log-level":
			cfg.LogLevel = *logLevel
		case "peers":
			cfg.Peers, err = parsePeers(*peers)
		}
	})
	if err != nil {
		return Config{}, err
	}

	if cfg.NodeID == "" {
		return Config{}, fmt.Errorf("node-id is required")
	}
	if len(cfg.Peers) > 0 && !cfg.Bootstrap {
		return Config{}, fmt.Errorf("peers can only be added by the bootstrap node")
	}
	return cfg, nil
}
