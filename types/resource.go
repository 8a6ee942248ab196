package types

// Resource lifecycle states for stateful services.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// Resource is one cloud resource observed in a single landing zone.
// ARN is the canonical cross-service identifier; LocalID is the
// provider-native id (instance id, bucket name, role name, ...).
// State is empty for services without a lifecycle.
type Resource struct {
	Service string            `json:"service"`
	ARN     string            `json:"arn"`
	LocalID string            `json:"local_id"`
	Tags    map[string]string `json:"tags"`
	State   string            `json:"state,omitempty"`
}

// Tag returns the value of a tag by exact key, and whether it exists.
func (r *Resource) Tag(key string) (string, bool) {
	if r.Tags == nil {
		return "", false
	}
	v, ok := r.Tags[key]
	return v, ok
}

// HasTag reports whether the tag key exists with exactly the given value.
func (r *Resource) HasTag(key, value string) bool {
	v, ok := r.Tag(key)
	return ok && v == value
}

// Name returns the Name tag, or the local id when untagged.
func (r *Resource) Name() string {
	if v, ok := r.Tag("Name"); ok && v != "" {
		return v
	}
	return r.LocalID
}
