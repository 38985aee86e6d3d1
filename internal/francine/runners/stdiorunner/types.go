// Package stdiorunner runs a configured script or binary as a tool. The
// tool arguments are passed as a single JSON argument; stdout is the result.
package stdiorunner

import (
	"github.com/Masterminds/semver/v3"
)

// Config is the runner part of a [[tools.command]] entry.
//
//	[[tools.command]]
//	name = "pdf_read"
//	manifest = "pdf_read.yaml"
//	version = "0.1.0"
//	runtime = "python"
//	script = "pdf_read.py"
//	env = { PDF_LANG = "en" }
type Config struct {
	Version  string            `mapstructure:"version"`
	Runtime  Runtime           `mapstructure:"runtime"`
	Env      map[string]string `mapstructure:"env"`
	Script   string            `mapstructure:"script"`
	Security Security          `mapstructure:"security"`
}

type Runtime string

const (
	RuntimeBash   Runtime = "bash"
	RuntimePython Runtime = "python"
	RuntimeNode   Runtime = "node"
	RuntimeBinary Runtime = "binary"
)

type SecurityType string

const (
	SecurityTypeDefault SecurityType = "default"
)

type Security struct {
	Type SecurityType `mapstructure:"type"`
}

var validRuntimes = map[Runtime]struct{}{
	RuntimeBash:   {},
	RuntimePython: {},
	RuntimeNode:   {},
	RuntimeBinary: {},
}

// VersionConstraint is the range of runner config versions understood.
const VersionConstraint = "~0.1"

func isVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint(VersionConstraint)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Validate fills defaults and checks c.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if !isVersionCompatible(c.Version) {
		return ErrInvalidVersion.Msg("unsupported runner version: " + c.Version)
	}
	if _, ok := validRuntimes[c.Runtime]; !ok {
		return ErrInvalidRuntime.Msg("invalid runtime: " + string(c.Runtime))
	}
	if c.Security.Type == "" {
		c.Security.Type = SecurityTypeDefault
	} else if c.Security.Type != SecurityTypeDefault {
		return ErrInvalidSecurity.Msg("security type not supported: " + string(c.Security.Type))
	}
	if c.Script == "" {
		return ErrInvalidScript.Msg("script is required")
	}
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	return nil
}
