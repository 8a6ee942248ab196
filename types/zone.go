package types

import "fmt"

// Zone describes one landing zone: an isolated account/region context
// reached via role assumption. Identity is (AccountID, Region).
type Zone struct {
	Name      string `yaml:"name" json:"name"`
	AccountID string `yaml:"account_id" json:"account_id"`
	RoleName  string `yaml:"role_name" json:"role_name"`
	Region    string `yaml:"region" json:"region"`
}

// Key returns the zone identity.
func (z Zone) Key() string {
	return z.AccountID + "/" + z.Region
}

// Validate checks the descriptor is usable for role assumption.
func (z Zone) Validate() error {
	if !validAccountID(z.AccountID) {
		return fmt.Errorf("invalid AWS account ID %q: must be 12 digits", z.AccountID)
	}
	if z.RoleName == "" {
		return fmt.Errorf("zone %s: role name is required", z.Name)
	}
	if z.Region == "" {
		return fmt.Errorf("zone %s: region is required", z.Name)
	}
	return nil
}

func validAccountID(id string) bool {
	if len(id) != 12 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
