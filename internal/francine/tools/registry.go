package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Registry is an immutable name to Tool mapping. It is safe for concurrent
// use because nothing mutates it after NewRegistry returns.
type Registry struct {
	tools      []Tool
	index      map[string]int
	schemas    map[string]*jsonschema.Schema
	schemaJSON string
}

// NewRegistry builds a registry. Tool order is preserved in Specs.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		index:   make(map[string]int, len(tools)),
		schemas: make(map[string]*jsonschema.Schema, len(tools)),
	}
	for _, t := range tools {
		if t.Spec.Name == "" {
			return nil, ErrToolError.Msg("tool name is required")
		}
		if t.Capability == nil {
			return nil, ErrToolError.Msg("tool " + t.Spec.Name + " has no capability")
		}
		if _, ok := r.index[t.Spec.Name]; ok {
			return nil, ErrDuplicateTool.Msg("duplicate tool name: " + t.Spec.Name)
		}
		if len(t.Spec.Parameters) == 0 {
			t.Spec.Parameters = Object()
		}
		compiled, err := compileSchema(t.Spec.Name, string(t.Spec.Parameters))
		if err != nil {
			return nil, ErrInvalidSchema.MsgErr("invalid parameter schema for "+t.Spec.Name, err)
		}
		r.index[t.Spec.Name] = len(r.tools)
		r.tools = append(r.tools, t)
		r.schemas[t.Spec.Name] = compiled
	}

	b, err := json.MarshalIndent(r.Specs(), "", "  ")
	if err != nil {
		return nil, ErrToolError.MsgErr("unable to render tool schema", err)
	}
	r.schemaJSON = string(b)
	return r, nil
}

// MustNewRegistry panics on error. Intended for static tool lists in tests.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	t := r.tools[i]
	t.Spec = t.Spec.clone()
	return t, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Spec.Name
	}
	return names
}

// Specs returns a copy of every ToolSpec in registration order.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, len(r.tools))
	for i, t := range r.tools {
		specs[i] = t.Spec.clone()
	}
	return specs
}

func (s ToolSpec) clone() ToolSpec {
	if s.Parameters != nil {
		s.Parameters = json.RawMessage(bytes.Clone(s.Parameters))
	}
	return s
}

// SchemaJSON is the indented JSON rendering of Specs sent to the model.
func (r *Registry) SchemaJSON() string {
	return r.schemaJSON
}

// Validate checks args against the named tool's parameter schema.
func (r *Registry) Validate(name string, args map[string]any) error {
	schema, ok := r.schemas[name]
	if !ok {
		return ErrUnknownTool.Msg("unknown tool: " + name)
	}
	normalized, err := normalize(args)
	if err != nil {
		return ErrInvalidArgs.MsgErr("arguments are not JSON encodable", err)
	}
	if err := schema.Validate(normalized); err != nil {
		return ErrInvalidArgs.Err(flattenValidationError(err))
	}
	return nil
}

func compileSchema(name, schema string) (*jsonschema.Schema, error) {
	if !gjson.Valid(schema) {
		return nil, fmt.Errorf("schema is not valid JSON")
	}
	url := "inline://tools/" + name
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(u string) (io.ReadCloser, error) {
		if u == url {
			return io.NopCloser(bytes.NewReader([]byte(schema))), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", u)
	}
	if err := compiler.AddResource(url, bytes.NewReader([]byte(schema))); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// normalize turns args into the shapes encoding/json produces so the schema
// validator sees float64 numbers and map[string]any objects.
func normalize(args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func flattenValidationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Errorf("%s: %s", loc, leaf.Message)
}

// DecodeArgs decodes validated args into a struct using json field tags.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return ErrInvalidArgs.Err(err)
	}
	return nil
}

// StringArg returns args[key] as a string or def when absent or not a string.
func StringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

// IntArg returns args[key] as an int or def when absent or not numeric.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// BoolArg returns args[key] as a bool or def.
func BoolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
