package settings

// Registry keeps settings in contiguous per-section blocks. Within a block,
// registration order is preserved.
type Registry struct {
	items []*Setting
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Insert places s at the end of its section's block, or at the end of the
// list when the section is new. Duplicates are not rejected.
func (r *Registry) Insert(s *Setting) {
	for i := 0; i+1 < len(r.items); i++ {
		if r.items[i].Section == s.Section && r.items[i+1].Section != s.Section {
			r.items = append(r.items, nil)
			copy(r.items[i+2:], r.items[i+1:])
			r.items[i+1] = s
			return
		}
	}
	r.items = append(r.items, s)
}

// Lookup returns the first setting matching section and name exactly.
func (r *Registry) Lookup(section, name string) (*Setting, bool) {
	for _, s := range r.items {
		if s.Section == section && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	return len(r.items)
}

// All returns the settings in registry order.
func (r *Registry) All() []*Setting {
	return append([]*Setting(nil), r.items...)
}
