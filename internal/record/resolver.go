package record

import "sort"

// LabelResolver translates between persisted ids and human labels for
// reference-backed fields. The host application supplies one backed by its
// lookup tables.
type LabelResolver interface {
	// Label returns the display label for a persisted id.
	Label(field, id string) (string, bool)
	// ID returns the persisted id for a display label.
	ID(field, label string) (string, bool)
}

// StaticResolver resolves labels from an in-memory table, loaded once at
// startup. Maps field name to id→label.
type StaticResolver struct {
	labels  map[string]map[string]string
	reverse map[string]map[string]string
}

// NewStaticResolver builds a resolver from a field→id→label table.
func NewStaticResolver(labels map[string]map[string]string) *StaticResolver {
	r := &StaticResolver{
		labels:  make(map[string]map[string]string, len(labels)),
		reverse: make(map[string]map[string]string, len(labels)),
	}
	for field, pairs := range labels {
		r.labels[field] = make(map[string]string, len(pairs))
		r.reverse[field] = make(map[string]string, len(pairs))
		for id, label := range pairs {
			r.labels[field][id] = label
			r.reverse[field][label] = id
		}
	}
	return r
}

// Label implements LabelResolver.
func (r *StaticResolver) Label(field, id string) (string, bool) {
	label, ok := r.labels[field][id]
	return label, ok
}

// ID implements LabelResolver.
func (r *StaticResolver) ID(field, label string) (string, bool) {
	id, ok := r.reverse[field][label]
	return id, ok
}

// Labels returns every known label for a field, for enum-style cycling in the
// cell editor.
func (r *StaticResolver) Labels(field string) []string {
	pairs := r.labels[field]
	if len(pairs) == 0 {
		return nil
	}
	out := make([]string, 0, len(pairs))
	for _, label := range pairs {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
