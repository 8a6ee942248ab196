package match

// ServicePolicies maps a service key to its default policy, loaded
// once from configuration and passed explicitly; never ambient state.
type ServicePolicies map[string]Policy

// Effective computes the policy that governs one service's scan.
// Operator excludes append to the service defaults; replace discards
// the defaults entirely. Operator includes always take precedence over
// default includes when given.
func (sp ServicePolicies) Effective(service string, operator Policy, replace bool) Policy {
	defaults := sp[service]

	effective := Policy{
		Includes: defaults.Includes,
		Excludes: defaults.Excludes,
	}
	if len(operator.Includes) > 0 {
		effective.Includes = operator.Includes
	}
	if replace {
		effective.Excludes = operator.Excludes
	} else if len(operator.Excludes) > 0 {
		merged := make([]Rule, 0, len(defaults.Excludes)+len(operator.Excludes))
		merged = append(merged, defaults.Excludes...)
		merged = append(merged, operator.Excludes...)
		effective.Excludes = merged
	}
	return effective
}
