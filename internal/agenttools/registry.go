// Package agenttools exposes site operations as function-calling tools for
// the chat assistant.
//
// Each tool's parameter schema is reflected from its Go argument type and
// compiled once; raw arguments produced by the model are validated against
// it before they are decoded and dispatched.
package agenttools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrUnknownTool is returned by Call for an unregistered name.
var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports tool arguments rejected before dispatch.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Definition is a tool in the chat-completions "tools" format.
type Definition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes one callable tool.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type tool struct {
	fn     Function
	schema *sjsonschema.Schema
	call   func(ctx context.Context, args []byte) (any, error)
}

// Registry holds tools in registration order. It is safe for concurrent
// use once populated.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*tool
	order []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*tool)}
}

// Register adds a tool named name whose arguments decode into In. When In
// implements Validate() error it is called after decoding.
func Register[In any](r *Registry, name, description string, fn func(ctx context.Context, in *In) (any, error)) error {
	raw, err := reflectSchema(reflect.TypeFor[In]())
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	sch, err := compile(name, raw)
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	t := &tool{
		fn:     Function{Name: name, Description: description, Parameters: raw},
		schema: sch,
		call: func(ctx context.Context, args []byte) (any, error) {
			in := new(In)
			d := json.NewDecoder(bytes.NewReader(args))
			d.DisallowUnknownFields()
			if err := d.Decode(in); err != nil {
				return nil, &ArgumentError{Tool: name, Err: err}
			}
			if v, ok := any(in).(interface{ Validate() error }); ok {
				if err := v.Validate(); err != nil {
					return nil, &ArgumentError{Tool: name, Err: err}
				}
			}
			return fn(ctx, in)
		},
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("tool %s registered twice", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register that panics on error. For use at startup.
func MustRegister[In any](r *Registry, name, description string, fn func(ctx context.Context, in *In) (any, error)) {
	if err := Register(r, name, description, fn); err != nil {
		panic(err)
	}
}

// Definitions returns every tool in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, Definition{Type: "function", Function: r.tools[n].fn})
	}
	return out
}

// RawDefinitions returns Definitions encoded for a completion request.
func (r *Registry) RawDefinitions() []json.RawMessage {
	defs := r.Definitions()
	out := make([]json.RawMessage, 0, len(defs))
	for _, d := range defs {
		b, err := json.Marshal(d)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Call validates args against the tool's schema and runs it.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	if err := t.schema.Validate(inst); err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	return t.call(ctx, args)
}

func reflectSchema(t reflect.Type) (json.RawMessage, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("arguments must be a struct, got %s", t.Kind())
	}
	rf := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := rf.ReflectFromType(t)
	s.Version = ""
	s.ID = ""
	return json.Marshal(s)
}

func compile(name string, raw []byte) (*sjsonschema.Schema, error) {
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	loc := name + ".json"
	if err := c.AddResource(loc, doc); err != nil {
		return nil, err
	}
	return c.Compile(loc)
}
