// Package scanner enumerates a single landing zone's resources and
// classifies them against the effective tag policy. Most services are
// listed through the resource groups tagging API; IAM roles and
// Route 53 hosted zones need direct API calls. A listing failure for
// one service never aborts the others.
package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/nisops/lzops/arn"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
)

// TaggingAPI is the tagging API surface the scanner needs.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error)
}

// IAMAPI lists roles and their tags.
type IAMAPI interface {
	ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error)
}

// Route53API lists hosted zones and their tags.
type Route53API interface {
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	ListTagsForResource(ctx context.Context, params *route53.ListTagsForResourceInput, optFns ...func(*route53.Options)) (*route53.ListTagsForResourceOutput, error)
}

// EC2API provides instance lifecycle state.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// RDSAPI provides database lifecycle state.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// ServiceError is a listing failure attached to the zone's result
// instead of being raised past the scan boundary.
type ServiceError struct {
	Service string `json:"service"`
	Err     error  `json:"-"`
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("service %s: %v", e.Service, e.Err)
}

func (e ServiceError) Unwrap() error { return e.Err }

// Scanner scans one zone. It holds no iterator state between calls;
// every Scan starts fresh.
type Scanner struct {
	zone     types.Zone
	defaults match.ServicePolicies
	logger   *telemetry.Logger

	tagging TaggingAPI
	iam     IAMAPI
	route53 Route53API
	ec2     EC2API
	rds     RDSAPI
}

// New builds a scanner with real AWS clients from the zone's scoped
// credentials.
func New(cfg aws.Config, zone types.Zone, defaults match.ServicePolicies, logger *telemetry.Logger) *Scanner {
	return &Scanner{
		zone:     zone,
		defaults: defaults,
		logger:   logger,
		tagging:  rgt.NewFromConfig(cfg),
		iam:      iam.NewFromConfig(cfg),
		route53:  route53.NewFromConfig(cfg),
		ec2:      ec2.NewFromConfig(cfg),
		rds:      rds.NewFromConfig(cfg),
	}
}

// NewWithClients wires explicit clients; used by tests.
func NewWithClients(zone types.Zone, defaults match.ServicePolicies, logger *telemetry.Logger,
	tagging TaggingAPI, iamAPI IAMAPI, route53API Route53API, ec2API EC2API, rdsAPI RDSAPI) *Scanner {
	return &Scanner{
		zone:     zone,
		defaults: defaults,
		logger:   logger,
		tagging:  tagging,
		iam:      iamAPI,
		route53:  route53API,
		ec2:      ec2API,
		rds:      rdsAPI,
	}
}

// Scan enumerates the requested services and returns the selected
// resources in provider listing order, plus any per-service errors.
// Operator excludes append to the service defaults unless replace is
// set; operator includes override defaults when given.
func (s *Scanner) Scan(ctx context.Context, services []string, override match.Policy, replace bool) ([]types.Resource, []ServiceError) {
	var resources []types.Resource
	var errs []ServiceError

	for _, service := range services {
		if !arn.Registered(service) {
			errs = append(errs, ServiceError{Service: service, Err: fmt.Errorf("unregistered service")})
			continue
		}
		policy := s.defaults.Effective(service, override, replace)

		var (
			found   []types.Resource
			svcErrs []ServiceError
		)
		switch {
		case service == "iam":
			found, svcErrs = s.listIAMRoles(ctx, policy)
		case service == "route53":
			found, svcErrs = s.listHostedZones(ctx, policy)
		default:
			found, svcErrs = s.listTagged(ctx, service, policy)
		}
		errs = append(errs, svcErrs...)

		switch service {
		case "ec2":
			if err := s.attachInstanceState(ctx, found); err != nil {
				errs = append(errs, ServiceError{Service: service, Err: err})
			}
		case "rds":
			if err := s.attachDBState(ctx, found); err != nil {
				errs = append(errs, ServiceError{Service: service, Err: err})
			}
		}

		s.logger.Debug().
			Str("service", service).
			Int("matched", len(found)).
			Msg("service scan complete")
		resources = append(resources, found...)
	}

	s.logger.Info().
		Int("matched", len(resources)).
		Int("errors", len(errs)).
		Msg("zone scan complete")
	return resources, errs
}
