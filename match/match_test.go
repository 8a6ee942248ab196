package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesIncludes_EmptyRuleSetMatchesEverything(t *testing.T) {
	assert.True(t, MatchesIncludes(map[string]string{"Name": "x"}, nil))
	assert.True(t, MatchesIncludes(nil, nil))
	assert.True(t, MatchesIncludes(map[string]string{}, []Rule{}))
}

func TestIsSelected_ExcludeOnlyPolicy(t *testing.T) {
	policy := Policy{
		Excludes: []Rule{{Key: "Name", Values: []string{"nef2"}}},
	}

	tags := map[string]string{"Name": "nef2-gateway"}
	assert.False(t, IsSelected(tags, policy))
	assert.Equal(t, !MatchesExcludes(tags, policy.Excludes), IsSelected(tags, policy))

	tags = map[string]string{"Name": "orders-api"}
	assert.True(t, IsSelected(tags, policy))
	assert.Equal(t, !MatchesExcludes(tags, policy.Excludes), IsSelected(tags, policy))
}

func TestExactMatching(t *testing.T) {
	rules := []Rule{{Key: "Environment", Values: []string{"Production"}, MatchType: MatchExact}}

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"exact value", map[string]string{"Environment": "Production"}, true},
		{"case insensitive key and value", map[string]string{"environment": "PRODUCTION"}, true},
		{"proper substring must not match", map[string]string{"Environment": "Production-East"}, false},
		{"rule value longer than tag value", map[string]string{"Environment": "Prod"}, false},
		{"missing key never matches", map[string]string{"Env": "Production"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesIncludes(tt.tags, rules))
		})
	}
}

func TestContainsMatching(t *testing.T) {
	rules := []Rule{{Key: "Name", Values: []string{"jenkins"}, MatchType: MatchContains}}

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"substring match", map[string]string{"Name": "nef-jenkins-master"}, true},
		{"full match", map[string]string{"Name": "jenkins"}, true},
		{"case insensitive", map[string]string{"name": "NEF-Jenkins"}, true},
		{"truncated value does not contain", map[string]string{"Name": "jenkin"}, false},
		{"missing key never matches", map[string]string{"Role": "jenkins"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesExcludes(tt.tags, rules))
		})
	}
}

func TestDefaultAsymmetry(t *testing.T) {
	// Same rule with MatchType omitted: exact in the include
	// direction, contains in the exclude direction.
	rule := Rule{Key: "Name", Values: []string{"jenkins"}}
	tags := map[string]string{"Name": "nef-jenkins-master"}

	assert.False(t, MatchesIncludes(tags, []Rule{rule}), "include defaults to exact")
	assert.True(t, MatchesExcludes(tags, []Rule{rule}), "exclude defaults to contains")
}

func TestKeyOnlyRule(t *testing.T) {
	rules := []Rule{{Key: "aws:autoscaling:groupName"}}

	assert.True(t, MatchesExcludes(map[string]string{"aws:autoscaling:groupName": "web-asg"}, rules))
	assert.True(t, MatchesExcludes(map[string]string{"AWS:AutoScaling:GroupName": ""}, rules))
	assert.False(t, MatchesExcludes(map[string]string{"Name": "web-asg"}, rules))
}

func TestOrAcrossRules(t *testing.T) {
	rules := []Rule{
		{Key: "HIPLocked", Values: []string{"Yes"}},
		{Key: "wiz"},
	}

	assert.True(t, MatchesIncludes(map[string]string{"HIPLocked": "Yes"}, rules))
	assert.True(t, MatchesIncludes(map[string]string{"wiz": "scanner"}, rules))
	assert.False(t, MatchesIncludes(map[string]string{"HIPLocked": "No"}, rules))
}

func TestServicePolicies_Effective(t *testing.T) {
	defaults := ServicePolicies{
		"ec2": {
			Includes: []Rule{{Key: "managed_by", Values: []string{"CMS"}}},
			Excludes: []Rule{{Key: "Name", Values: []string{"nef2"}}},
		},
	}

	t.Run("no override keeps defaults", func(t *testing.T) {
		got := defaults.Effective("ec2", Policy{}, false)
		assert.Len(t, got.Includes, 1)
		assert.Len(t, got.Excludes, 1)
	})

	t.Run("operator excludes append", func(t *testing.T) {
		got := defaults.Effective("ec2", Policy{Excludes: []Rule{{Key: "Name", Values: []string{"sandbox"}}}}, false)
		assert.Len(t, got.Excludes, 2)
		assert.Equal(t, "nef2", got.Excludes[0].Values[0])
		assert.Equal(t, "sandbox", got.Excludes[1].Values[0])
	})

	t.Run("replace discards defaults", func(t *testing.T) {
		got := defaults.Effective("ec2", Policy{Excludes: []Rule{{Key: "Name", Values: []string{"sandbox"}}}}, true)
		assert.Len(t, got.Excludes, 1)
		assert.Equal(t, "sandbox", got.Excludes[0].Values[0])
	})

	t.Run("unknown service has empty defaults", func(t *testing.T) {
		got := defaults.Effective("s3", Policy{}, false)
		assert.Empty(t, got.Includes)
		assert.Empty(t, got.Excludes)
	})
}
