package tools

import (
	"encoding/json"
)

// Param describes one tool parameter.
type Param struct {
	Name        string
	Type        string // JSON Schema type: string, number, integer, boolean, object, array
	Description string
	Required    bool
}

// Required is shorthand for a required parameter.
func Required(name, typ, description string) Param {
	return Param{Name: name, Type: typ, Description: description, Required: true}
}

// Optional is shorthand for an optional parameter.
func Optional(name, typ, description string) Param {
	return Param{Name: name, Type: typ, Description: description}
}

type propertySchema struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type objectSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]propertySchema `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// Object renders params as a JSON Schema object that rejects unknown keys.
func Object(params ...Param) json.RawMessage {
	s := objectSchema{
		Type:       "object",
		Properties: make(map[string]propertySchema, len(params)),
		Required:   []string{},
	}
	for _, p := range params {
		s.Properties[p.Name] = propertySchema{Type: p.Type, Description: p.Description}
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}

// New builds a Tool from a name, description and parameter list.
func New(name, description string, family Family, capability Capability, params ...Param) Tool {
	return Tool{
		Spec: ToolSpec{
			Name:        name,
			Description: description,
			Parameters:  Object(params...),
		},
		Capability: capability,
		Family:     family,
	}
}

// WithBlocking marks t as blocking and returns it.
func (t Tool) WithBlocking() Tool {
	t.Blocking = true
	return t
}
