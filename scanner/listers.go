package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	rgttypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/nisops/lzops/arn"
	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/types"
)

// listTagged pages one service through the tagging API. Paginating
// per service keeps failure isolation at service granularity.
func (s *Scanner) listTagged(ctx context.Context, service string, policy match.Policy) ([]types.Resource, []ServiceError) {
	filter, err := arn.ResourceTypeFilter(service)
	if err != nil {
		return nil, []ServiceError{{Service: service, Err: err}}
	}

	var resources []types.Resource
	var errs []ServiceError

	input := &rgt.GetResourcesInput{ResourceTypeFilters: []string{filter}}
	for {
		out, err := s.tagging.GetResources(ctx, input)
		if err != nil {
			errs = append(errs, ServiceError{Service: service, Err: fmt.Errorf("list resources: %w", err)})
			return resources, errs
		}

		for _, mapping := range out.ResourceTagMappingList {
			address := aws.ToString(mapping.ResourceARN)
			ref, err := arn.Parse(address)
			if err != nil {
				errs = append(errs, ServiceError{Service: service, Err: err})
				continue
			}
			tags := taggingTagMap(mapping.Tags)
			if !match.IsSelected(tags, policy) {
				continue
			}
			resources = append(resources, types.Resource{
				Service: ref.Service,
				ARN:     address,
				LocalID: ref.LocalID,
				Tags:    tags,
			})
		}

		if aws.ToString(out.PaginationToken) == "" {
			break
		}
		input.PaginationToken = out.PaginationToken
	}
	return resources, errs
}

// listIAMRoles lists roles directly; the tagging API does not cover
// IAM.
func (s *Scanner) listIAMRoles(ctx context.Context, policy match.Policy) ([]types.Resource, []ServiceError) {
	var resources []types.Resource
	var errs []ServiceError

	input := &iam.ListRolesInput{}
	for {
		out, err := s.iam.ListRoles(ctx, input)
		if err != nil {
			errs = append(errs, ServiceError{Service: "iam", Err: fmt.Errorf("list roles: %w", err)})
			return resources, errs
		}

		for _, role := range out.Roles {
			name := aws.ToString(role.RoleName)
			tagsOut, err := s.iam.ListRoleTags(ctx, &iam.ListRoleTagsInput{RoleName: role.RoleName})
			if err != nil {
				errs = append(errs, ServiceError{Service: "iam", Err: fmt.Errorf("tags for role %s: %w", name, err)})
				continue
			}
			tags := make(map[string]string, len(tagsOut.Tags))
			for _, t := range tagsOut.Tags {
				tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
			}
			if !match.IsSelected(tags, policy) {
				continue
			}
			address, err := arn.Build("iam", "", s.zone.AccountID, name)
			if err != nil {
				errs = append(errs, ServiceError{Service: "iam", Err: err})
				continue
			}
			resources = append(resources, types.Resource{
				Service: "iam",
				ARN:     address,
				LocalID: name,
				Tags:    tags,
			})
		}

		if !out.IsTruncated {
			break
		}
		input.Marker = out.Marker
	}
	return resources, errs
}

// listHostedZones lists Route 53 zones directly.
func (s *Scanner) listHostedZones(ctx context.Context, policy match.Policy) ([]types.Resource, []ServiceError) {
	var resources []types.Resource
	var errs []ServiceError

	input := &route53.ListHostedZonesInput{}
	for {
		out, err := s.route53.ListHostedZones(ctx, input)
		if err != nil {
			errs = append(errs, ServiceError{Service: "route53", Err: fmt.Errorf("list hosted zones: %w", err)})
			return resources, errs
		}

		for _, hz := range out.HostedZones {
			id := strings.TrimPrefix(aws.ToString(hz.Id), "/hostedzone/")
			tagsOut, err := s.route53.ListTagsForResource(ctx, &route53.ListTagsForResourceInput{
				ResourceType: r53types.TagResourceTypeHostedzone,
				ResourceId:   aws.String(id),
			})
			if err != nil {
				errs = append(errs, ServiceError{Service: "route53", Err: fmt.Errorf("tags for zone %s: %w", id, err)})
				continue
			}
			tags := make(map[string]string)
			if tagsOut.ResourceTagSet != nil {
				for _, t := range tagsOut.ResourceTagSet.Tags {
					tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
				}
			}
			if !match.IsSelected(tags, policy) {
				continue
			}
			address, err := arn.Build("route53", "", "", id)
			if err != nil {
				errs = append(errs, ServiceError{Service: "route53", Err: err})
				continue
			}
			resources = append(resources, types.Resource{
				Service: "route53",
				ARN:     address,
				LocalID: id,
				Tags:    tags,
			})
		}

		if !out.IsTruncated {
			break
		}
		input.Marker = out.NextMarker
	}
	return resources, errs
}

// attachInstanceState fills lifecycle state for EC2 instances so the
// executor can gate start/stop.
func (s *Scanner) attachInstanceState(ctx context.Context, resources []types.Resource) error {
	var ids []string
	byID := make(map[string]int)
	for i, r := range resources {
		if r.Service == "ec2" {
			ids = append(ids, r.LocalID)
			byID[r.LocalID] = i
		}
	}
	if len(ids) == 0 {
		return nil
	}

	// DescribeInstances accepts at most 100 ids per call.
	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}
		out, err := s.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids[start:end]})
		if err != nil {
			return fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range out.Reservations {
			for _, instance := range reservation.Instances {
				id := aws.ToString(instance.InstanceId)
				if i, ok := byID[id]; ok && instance.State != nil {
					resources[i].State = string(instance.State.Name)
				}
			}
		}
	}
	return nil
}

// attachDBState fills lifecycle state for RDS instances. RDS reports
// "available" for a running database.
func (s *Scanner) attachDBState(ctx context.Context, resources []types.Resource) error {
	byARN := make(map[string]int)
	for i, r := range resources {
		if r.Service == "rds" {
			byARN[r.ARN] = i
		}
	}
	if len(byARN) == 0 {
		return nil
	}

	input := &rds.DescribeDBInstancesInput{}
	for {
		out, err := s.rds.DescribeDBInstances(ctx, input)
		if err != nil {
			return fmt.Errorf("describe db instances: %w", err)
		}
		for _, db := range out.DBInstances {
			i, ok := byARN[aws.ToString(db.DBInstanceArn)]
			if !ok {
				continue
			}
			switch status := aws.ToString(db.DBInstanceStatus); status {
			case "available":
				resources[i].State = types.StateRunning
			case "stopped":
				resources[i].State = types.StateStopped
			default:
				resources[i].State = status
			}
		}
		if aws.ToString(out.Marker) == "" {
			break
		}
		input.Marker = out.Marker
	}
	return nil
}

func taggingTagMap(tags []rgttypes.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return m
}
