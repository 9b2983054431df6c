package testutil

import "github.com/vk/fakegridgo/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers the forms of a single capability.
type SimpleModule struct {
	Name   string
	Single registry.SingleFunc
	Batch  registry.BatchFunc
	Unique registry.UniqueFunc
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Single != nil {
		r.Register(m.Name, "test capability", m.Single)
	}
	if m.Batch != nil {
		r.RegisterBatch(m.Name, m.Batch)
	}
	if m.Unique != nil {
		r.RegisterUnique(m.Name, m.Unique)
	}
}
