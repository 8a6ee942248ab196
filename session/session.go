// Package session acquires scoped, time-bounded AWS credentials for a
// landing zone by assuming the zone's role via STS. Callers treat the
// returned aws.Config as opaque; caching and refresh belong to the
// SDK's credential cache, not to this package.
package session

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/nisops/lzops/types"
)

// CredentialError marks a failure to obtain zone credentials. The
// orchestrator treats it as a configuration error: fatal for the zone,
// never retried.
type CredentialError struct {
	Zone string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials for zone %s: %v", e.Zone, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Provider yields a scoped client capability for a zone descriptor.
type Provider interface {
	Acquire(ctx context.Context, zone types.Zone) (aws.Config, error)
}

// STSProvider assumes the zone's role from the tool's base identity.
type STSProvider struct {
	sessionName string
}

// NewSTSProvider creates a provider; sessionName labels the assumed
// sessions in CloudTrail ("<zone>-<sessionName>").
func NewSTSProvider(sessionName string) *STSProvider {
	return &STSProvider{sessionName: sessionName}
}

// Acquire validates the descriptor, assumes the zone role and verifies
// the credentials resolve, so failures surface here as a
// CredentialError rather than on the first listing call.
func (p *STSProvider) Acquire(ctx context.Context, zone types.Zone) (aws.Config, error) {
	if err := zone.Validate(); err != nil {
		return aws.Config{}, &CredentialError{Zone: zone.Name, Err: err}
	}

	base, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(zone.Region))
	if err != nil {
		return aws.Config{}, &CredentialError{Zone: zone.Name, Err: err}
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", zone.AccountID, zone.RoleName)
	assume := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(base), roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = zone.Name + "-" + p.sessionName
	})

	cfg := base.Copy()
	cfg.Region = zone.Region
	cfg.Credentials = aws.NewCredentialsCache(assume)

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, &CredentialError{Zone: zone.Name, Err: fmt.Errorf("assume role %s: %w", roleARN, err)}
	}
	return cfg, nil
}
