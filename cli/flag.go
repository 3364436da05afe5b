package cli

import (
	"slices"
	"strings"

	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/config"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

type accelerationFlag struct {
	Value api.Acceleration
}

// String implements pflag.Value.
func (f *accelerationFlag) String() string {
	return string(f.Value)
}

func (f *accelerationFlag) Set(value string) error {
	a := api.Acceleration(value)
	if !a.Valid() {
		return failure.New(InvalidAcceleration,
			failure.Messagef("Unknown acceleration %q, want one of %s", value,
				strings.Join(lo.Map(api.Accelerations, func(a api.Acceleration, _ int) string { return string(a) }), ", ")))
	}
	f.Value = a
	return nil
}

func (f *accelerationFlag) Type() string {
	return "acceleration"
}

// outputFormat selects how results are printed
type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

var outputFormats = []outputFormat{formatText, formatJSON, formatYAML}

// String implements pflag.Value.
func (f *outputFormat) String() string {
	return string(*f)
}

func (f *outputFormat) Set(value string) error {
	if !slices.Contains(outputFormats, outputFormat(value)) {
		return failure.New(InvalidFormat,
			failure.Messagef("Unknown format %q, want text, json or yaml", value))
	}
	*f = outputFormat(value)
	return nil
}

func (f *outputFormat) Type() string {
	return "format"
}

type launcherFlag struct {
	Value config.Launcher
}

// String implements pflag.Value.
func (f *launcherFlag) String() string {
	return string(f.Value)
}

func (f *launcherFlag) Set(value string) error {
	l := config.Launcher(value)
	if !slices.Contains(config.Launchers, l) {
		return failure.New(InvalidArguments,
			failure.Messagef("Unknown launcher %q, want binary, go or uv", value))
	}
	f.Value = l
	return nil
}

func (f *launcherFlag) Type() string {
	return "launcher"
}

var (
	_ pflag.Value = &accelerationFlag{}
	_ pflag.Value = new(outputFormat)
	_ pflag.Value = &launcherFlag{}
)
