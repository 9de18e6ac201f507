// Package host is a headless stand-in for the game engine that embeds the
// runtime: class registration with property hints, mesh state and a fixed
// step physics loop.
package host

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrClassAlreadyRegistered = errors.New("class already registered")
	ErrClassNotFound          = errors.New("class not found")
	ErrPropertyNotFound       = errors.New("property not found")
	ErrPropertyReadOnly       = errors.New("property is read-only")
)

// Instance is a registered class instance driven by the frame loop.
type Instance interface {
	Ready(owner Spatial)
	PhysicsProcess(owner Spatial, delta float64)
}

// HintKind tells an editor how to present a property.
type HintKind int

const (
	HintNone HintKind = iota
	// HintEnum restricts a string property to HintValues.
	HintEnum
	// HintFlags presents an integer property as a bit set named by HintValues.
	HintFlags
)

func (k HintKind) String() string {
	switch k {
	case HintEnum:
		return "enum"
	case HintFlags:
		return "flags"
	default:
		return "none"
	}
}

// Property describes an exported property of a class. Path uses the
// "group/name" form.
type Property struct {
	Path       string
	Hint       HintKind
	HintValues []string
	Getter     func(inst Instance) any
	Setter     func(inst Instance, v any) error
}

// Class describes a class registered with the host.
type Class struct {
	Name       string
	Base       string
	New        func() Instance
	Properties []Property
}

func (c *Class) property(path string) (*Property, bool) {
	for i := range c.Properties {
		if c.Properties[i].Path == path {
			return &c.Properties[i], true
		}
	}
	return nil, false
}

// InitHandle is passed to the init hook; classes registered through it can
// be instantiated by the host.
type InitHandle struct {
	mu      sync.RWMutex
	classes map[string]*Class
	order   []string
}

func NewInitHandle() *InitHandle {
	return &InitHandle{classes: make(map[string]*Class)}
}

// AddClass registers a class. Names must be unique.
func (h *InitHandle) AddClass(c Class) error {
	if c.Name == "" || c.New == nil {
		return errors.New("class name and constructor are required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.classes[c.Name]; ok {
		return fmt.Errorf("%w: %s", ErrClassAlreadyRegistered, c.Name)
	}
	h.classes[c.Name] = &c
	h.order = append(h.order, c.Name)
	return nil
}

func (h *InitHandle) Class(name string) (*Class, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.classes[name]
	return c, ok
}

// Classes returns class names in registration order.
func (h *InitHandle) Classes() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := make([]string, len(h.order))
	copy(res, h.order)
	return res
}

// Instantiate creates an instance of a registered class attached to owner.
func (h *InitHandle) Instantiate(name string, owner Spatial) (*Node, error) {
	c, ok := h.Class(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return &Node{Class: c, Instance: c.New(), Owner: owner}, nil
}

// Node binds a class instance to its owner in the scene.
type Node struct {
	Class    *Class
	Instance Instance
	Owner    Spatial
}

// Get reads a property through its getter.
func (n *Node) Get(path string) (any, error) {
	p, ok := n.Class.property(path)
	if !ok || p.Getter == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrPropertyNotFound, n.Class.Name, path)
	}
	return p.Getter(n.Instance), nil
}

// Set writes a property through its setter.
func (n *Node) Set(path string, v any) error {
	p, ok := n.Class.property(path)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrPropertyNotFound, n.Class.Name, path)
	}
	if p.Setter == nil {
		return fmt.Errorf("%w: %s.%s", ErrPropertyReadOnly, n.Class.Name, path)
	}
	return p.Setter(n.Instance, v)
}
