// Package tools defines the tool contract shown to the language model and the
// immutable registry that maps tool names to capabilities. Arguments are
// validated against each tool's JSON Schema before a capability is called.
package tools

import (
	"context"
	"encoding/json"
)

// Family groups tools whose successful results are summarised the same way.
type Family string

const (
	FamilyGeneric  Family = ""
	FamilyRawHits  Family = "raw_hits" // results persisted under raw_hits/
	FamilyScrape   Family = "scrape"
	FamilyDocument Family = "document"
	FamilyRAG      Family = "rag"
	FamilyCalc     Family = "calc"
	FamilyMessage  Family = "message" // capability already returns user-facing text
)

// ToolSpec is the contract sent in-band with every completion request.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Capability performs the work behind a tool. It may block, perform side
// effects and return an error; the invoker contains panics.
type Capability interface {
	Call(ctx context.Context, args map[string]any) (any, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, args map[string]any) (any, error)

func (f CapabilityFunc) Call(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// Tool couples a ToolSpec with its capability.
type Tool struct {
	Spec       ToolSpec
	Capability Capability
	Family     Family
	Blocking   bool // run on the invoker's bounded worker pool
}
