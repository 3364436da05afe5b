package config

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/morikuni/failure/v2"
)

// DefaultServerName is the key of the server inside mcpServers
const DefaultServerName = "levels-ai"

// Launcher selects how the host editor starts the server
type Launcher string

const (
	// LauncherBinary runs an installed levels binary
	LauncherBinary Launcher = "binary"
	// LauncherGo runs the server from a source checkout with go run
	LauncherGo Launcher = "go"
	// LauncherUV runs a Python server.py through uv
	LauncherUV Launcher = "uv"
)

// Launchers lists the supported launchers
var Launchers = []Launcher{LauncherBinary, LauncherGo, LauncherUV}

// ServerEntry is one entry of mcpServers
type ServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Stanza is the host editor configuration block
type Stanza struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
}

// RegistrationOptions describes the server to register
type RegistrationOptions struct {
	Name     string
	Launcher Launcher
	// Command overrides the launcher executable; looked up when empty
	Command string
	// Directory is the project directory, the working directory when empty
	Directory string
	// EnvFile defaults to <Directory>/.env
	EnvFile string
}

// Registration builds the mcpServers stanza. Every path in it is absolute.
func Registration(opts RegistrationOptions) (Stanza, error) {
	if opts.Name == "" {
		opts.Name = DefaultServerName
	}
	if opts.Launcher == "" {
		opts.Launcher = LauncherBinary
	}

	dir := opts.Directory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Stanza{}, failure.Wrap(err, failure.WithCode(ErrInvalidConfig))
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Stanza{}, failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Context{"directory": opts.Directory})
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(dir, ".env")
	}
	if envFile, err = filepath.Abs(envFile); err != nil {
		return Stanza{}, failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Context{"env_file": opts.EnvFile})
	}

	var args []string
	switch opts.Launcher {
	case LauncherBinary:
		args = []string{"--env-file", envFile, "mcp"}
	case LauncherGo:
		args = []string{"-C", dir, "run", "./cmd/levels", "--env-file", envFile, "mcp"}
	case LauncherUV:
		args = []string{"--directory", dir, "run", "--env-file", envFile, "server.py"}
	default:
		return Stanza{}, failure.New(ErrInvalidConfig,
			failure.Messagef("Unknown launcher %q", opts.Launcher))
	}

	command, err := launcherCommand(opts.Launcher, opts.Command)
	if err != nil {
		return Stanza{}, err
	}

	return Stanza{
		MCPServers: map[string]ServerEntry{
			opts.Name: {Command: command, Args: args},
		},
	}, nil
}

func launcherCommand(l Launcher, override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}

	var (
		path string
		err  error
	)
	switch l {
	case LauncherBinary:
		path, err = os.Executable()
	default:
		path, err = exec.LookPath(string(l))
	}
	if err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Messagef("Cannot locate the %s executable", l))
	}
	return filepath.Abs(path)
}
