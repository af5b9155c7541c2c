// Package service maps typed operations to wire commands. Every operation
// has one or more descriptors, each valid for a set of platform protocols,
// registered once at startup in an explicit table.
package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ZentaChain/ntlink/pkg/protocol"
)

var (
	ErrNoDescriptor      = errors.New("no descriptor for operation")
	ErrDescriptorOverlap = errors.New("descriptor protocols overlap")
	ErrUnexpectedRequest = errors.New("request type does not match descriptor")
)

// Operation names one logical request, independent of platform
type Operation string

// Event is a typed request dispatched through the registry
type Event interface {
	Operation() Operation
}

// Descriptor is the registered build/parse and framing metadata for one
// wire command on a set of platforms
type Descriptor struct {
	Operation   Operation
	Command     string
	RequestType protocol.RequestType
	EncryptType protocol.EncryptType
	Protocols   protocol.Protocol

	build func(env *Env, req Event) ([]byte, error)
	parse func(env *Env, req Event, data []byte) (any, error)
}

// Define creates a descriptor whose build and parse functions are typed on
// the request and response.
func Define[Req Event, Resp any](
	command string,
	reqType protocol.RequestType,
	encType protocol.EncryptType,
	protocols protocol.Protocol,
	build func(env *Env, req Req) ([]byte, error),
	parse func(env *Env, req Req, data []byte) (Resp, error),
) *Descriptor {
	var zero Req
	return &Descriptor{
		Operation:   zero.Operation(),
		Command:     command,
		RequestType: reqType,
		EncryptType: encType,
		Protocols:   protocols,
		build: func(env *Env, ev Event) ([]byte, error) {
			req, ok := ev.(Req)
			if !ok {
				return nil, fmt.Errorf("%w: %T for %s", ErrUnexpectedRequest, ev, command)
			}
			return build(env, req)
		},
		parse: func(env *Env, ev Event, data []byte) (any, error) {
			req, ok := ev.(Req)
			if !ok {
				return nil, fmt.Errorf("%w: %T for %s", ErrUnexpectedRequest, ev, command)
			}
			return parse(env, req, data)
		},
	}
}

// Registry is the operation table. It is filled at startup and only read
// afterwards.
type Registry struct {
	mu  sync.RWMutex
	ops map[Operation][]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[Operation][]*Descriptor)}
}

// Register adds d. Two descriptors of one operation may not claim the same
// platform.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ops[d.Operation] {
		if existing.Protocols&d.Protocols != 0 {
			return fmt.Errorf("%w: %s %s and %s", ErrDescriptorOverlap, d.Operation, existing.Protocols, d.Protocols)
		}
	}
	r.ops[d.Operation] = append(r.ops[d.Operation], d)
	return nil
}

// MustRegister registers every descriptor and panics on conflict
func (r *Registry) MustRegister(ds ...*Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Select returns the descriptor of op that applies to platform p
func (r *Registry) Select(op Operation, p protocol.Protocol) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.ops[op] {
		if d.Protocols.Contains(p) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrNoDescriptor, op, p)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry holding every built-in descriptor
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.MustRegister(builtin()...)
	})
	return defaultRegistry
}
