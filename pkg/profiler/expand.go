package profiler

import (
	"maps"
	"slices"
)

// Expand fills in what a profiler engine would infer at load time: each
// builder of a known class gets its fully qualified module name and the
// class's default attributes. Explicit values are never overwritten. A
// module name that names only the kind's package is completed with the
// class module.
func Expand(cfg *Config, reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry
	}

	for _, nr := range cfg.Rules {
		if nr.Rule == nil {
			continue
		}

		for _, kb := range nr.Builders() {
			expandBuilder(kb.Builder, kb.Kind, reg)
		}
	}
}

func expandBuilder(b *Builder, kind Kind, reg *Registry) {
	class, ok := reg.Lookup(kind, b.ClassName)
	if !ok {
		return
	}

	switch b.ModuleName {
	case "", kind.Package():
		b.Set(keyModuleName, class.Module())
	}

	for _, key := range slices.Sorted(maps.Keys(class.Defaults)) {
		if _, set := b.Get(key); set {
			continue
		}

		b.Set(key, DeepCopy(class.Defaults[key]))
	}
}
