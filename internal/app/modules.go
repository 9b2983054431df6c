package app

import (
	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/modules/basic"
	"github.com/vk/fakegridgo/modules/env_vars"
	"github.com/vk/fakegridgo/modules/medical"
	"github.com/vk/fakegridgo/modules/person"
)

// coreModules is the definitive list of all modules that are compiled into
// the fakegrid binary.
var coreModules = []registry.Module{
	&basic.Module{},
	&person.Module{},
	&medical.Module{},
	&env_vars.Module{},
}
