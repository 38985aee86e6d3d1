// Package runners turns [[tools.command]] and [[tools.js]] configuration
// entries into registry tools backed by the stdio and JavaScript runners.
package runners

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mitchellh/mapstructure"
	"sigs.k8s.io/yaml"

	"github.com/tansive/francine/internal/francine/tools"
)

var validToolName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,63}$`)

// Definition is the tool half of a configuration entry. Fields missing
// inline are taken from the YAML manifest when one is named.
type Definition struct {
	Name        string         `mapstructure:"name" json:"name"`
	Description string         `mapstructure:"description" json:"description"`
	Family      string         `mapstructure:"family" json:"family"`
	Blocking    bool           `mapstructure:"blocking" json:"blocking"`
	Parameters  map[string]any `mapstructure:"parameters" json:"parameters"`
	Manifest    string         `mapstructure:"manifest" json:"-"`
}

// DecodeDefinition reads the tool fields of entry, merging the manifest
// file if any. Relative manifest paths resolve against baseDir.
func DecodeDefinition(entry map[string]any, baseDir string) (Definition, error) {
	var def Definition
	if err := mapstructure.Decode(entry, &def); err != nil {
		return def, ErrInvalidDefinition.MsgErr("unable to decode tool entry", err)
	}
	if def.Manifest != "" {
		path := def.Manifest
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		m, err := LoadManifest(path)
		if err != nil {
			return def, err
		}
		def.mergeFrom(m)
	}
	if !validToolName.MatchString(def.Name) {
		return def, ErrInvalidDefinition.Msg("invalid tool name: " + `"` + def.Name + `"`)
	}
	if def.Description == "" {
		return def, ErrInvalidDefinition.Msg("tool " + def.Name + " has no description")
	}
	if def.Parameters == nil {
		def.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return def, nil
}

// LoadManifest reads a YAML manifest:
//
//	name: pdf_read
//	description: Reads text content from a PDF file.
//	family: document
//	parameters:
//	  type: object
//	  properties:
//	    path: {type: string, description: Path to the PDF.}
//	  required: [path]
func LoadManifest(path string) (Definition, error) {
	var def Definition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, ErrManifest.MsgErr("unable to read "+path, err)
	}
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return def, ErrManifest.MsgErr("invalid YAML in "+path, err)
	}
	if err := json.Unmarshal(j, &def); err != nil {
		return def, ErrManifest.MsgErr("unexpected manifest shape in "+path, err)
	}
	return def, nil
}

func (d *Definition) mergeFrom(m Definition) {
	if d.Name == "" {
		d.Name = m.Name
	}
	if d.Description == "" {
		d.Description = m.Description
	}
	if d.Family == "" {
		d.Family = m.Family
	}
	if d.Parameters == nil {
		d.Parameters = m.Parameters
	}
	d.Blocking = d.Blocking || m.Blocking
}

// Tool builds a registry tool around capability.
func (d Definition) Tool(capability tools.Capability) (tools.Tool, error) {
	params, err := json.Marshal(d.Parameters)
	if err != nil {
		return tools.Tool{}, ErrInvalidDefinition.MsgErr("unable to encode parameters of "+d.Name, err)
	}
	return tools.Tool{
		Spec: tools.ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		},
		Capability: capability,
		Family:     tools.Family(d.Family),
		Blocking:   d.Blocking,
	}, nil
}
