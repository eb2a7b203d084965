/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Sender is the outbound side of one live connection. Send must not block.
type Sender interface {
	Send(msg Message) error
}

type connection struct {
	name  string
	photo string
	out   Sender
}

// Registry maps connection IDs to display names, avatars and outbound sinks.
// It is not safe for concurrent use; the Relay serializes access.
type Registry struct {
	defaultName string
	conns       map[string]*connection
}

func newRegistry(defaultName string) *Registry {
	return &Registry{
		defaultName: defaultName,
		conns:       make(map[string]*connection),
	}
}

// register adds a connection. Registering a known ID leaves its name alone
// but replaces the sink if one is given.
func (r *Registry) register(id, name string, out Sender) {
	if c, ok := r.conns[id]; ok {
		if out != nil {
			c.out = out
		}
		return
	}

	if name == "" {
		name = r.defaultName
	}

	r.conns[id] = &connection{name: name, out: out}
}

func (r *Registry) rename(id, name string) {
	if c, ok := r.conns[id]; ok {
		c.name = name
	}
}

func (r *Registry) setPhoto(id, photo string) {
	if c, ok := r.conns[id]; ok {
		c.photo = photo
	}
}

// lookup never fails; unknown connections get the default name.
func (r *Registry) lookup(id string) string {
	if c, ok := r.conns[id]; ok {
		return c.name
	}
	return r.defaultName
}

func (r *Registry) photo(id string) string {
	if c, ok := r.conns[id]; ok {
		return c.photo
	}
	return ""
}

func (r *Registry) sender(id string) (Sender, bool) {
	c, ok := r.conns[id]
	if !ok || c.out == nil {
		return nil, false
	}
	return c.out, true
}

func (r *Registry) known(id string) bool {
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) unregister(id string) {
	delete(r.conns, id)
}

func (r *Registry) len() int {
	return len(r.conns)
}
