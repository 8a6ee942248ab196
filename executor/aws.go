package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/nisops/lzops/types"
)

// awsMutator performs the real provider calls. Tagging goes through
// the Resource Groups Tagging API so one path covers every taggable
// service; start/stop/delete dispatch per service.
type awsMutator struct {
	tagging *rgt.Client
	ec2     *ec2.Client
	rds     *rds.Client
	s3      *s3.Client
	sqs     *sqs.Client
	lambda  *lambda.Client
	kms     *kms.Client
	elb     *elasticloadbalancingv2.Client
	asg     *autoscaling.Client
	iam     *iam.Client
	route53 *route53.Client
}

func newAWSMutator(cfg aws.Config) *awsMutator {
	return &awsMutator{
		tagging: rgt.NewFromConfig(cfg),
		ec2:     ec2.NewFromConfig(cfg),
		rds:     rds.NewFromConfig(cfg),
		s3:      s3.NewFromConfig(cfg),
		sqs:     sqs.NewFromConfig(cfg),
		lambda:  lambda.NewFromConfig(cfg),
		kms:     kms.NewFromConfig(cfg),
		elb:     elasticloadbalancingv2.NewFromConfig(cfg),
		asg:     autoscaling.NewFromConfig(cfg),
		iam:     iam.NewFromConfig(cfg),
		route53: route53.NewFromConfig(cfg),
	}
}

func (m *awsMutator) Tag(ctx context.Context, r types.Resource, tags map[string]string) error {
	out, err := m.tagging.TagResources(ctx, &rgt.TagResourcesInput{
		ResourceARNList: []string{r.ARN},
		Tags:            tags,
	})
	if err != nil {
		return err
	}
	if info, ok := out.FailedResourcesMap[r.ARN]; ok {
		return fmt.Errorf("tag %s: %s", r.ARN, aws.ToString(info.ErrorMessage))
	}
	return nil
}

func (m *awsMutator) Start(ctx context.Context, r types.Resource) error {
	switch r.Service {
	case "ec2":
		_, err := m.ec2.StartInstances(ctx, &ec2.StartInstancesInput{
			InstanceIds: []string{r.LocalID},
		})
		return err
	case "rds":
		_, err := m.rds.StartDBInstance(ctx, &rds.StartDBInstanceInput{
			DBInstanceIdentifier: aws.String(r.LocalID),
		})
		return err
	default:
		return fmt.Errorf("service %s does not support start", r.Service)
	}
}

func (m *awsMutator) Stop(ctx context.Context, r types.Resource) error {
	switch r.Service {
	case "ec2":
		_, err := m.ec2.StopInstances(ctx, &ec2.StopInstancesInput{
			InstanceIds: []string{r.LocalID},
		})
		return err
	case "rds":
		_, err := m.rds.StopDBInstance(ctx, &rds.StopDBInstanceInput{
			DBInstanceIdentifier: aws.String(r.LocalID),
		})
		return err
	default:
		return fmt.Errorf("service %s does not support stop", r.Service)
	}
}

func (m *awsMutator) Delete(ctx context.Context, r types.Resource) error {
	switch r.Service {
	case "ec2":
		_, err := m.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
			InstanceIds: []string{r.LocalID},
		})
		return err
	case "ebs":
		_, err := m.ec2.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
			VolumeId: aws.String(r.LocalID),
		})
		return err
	case "sg":
		_, err := m.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
			GroupId: aws.String(r.LocalID),
		})
		return err
	case "s3":
		_, err := m.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(r.LocalID),
		})
		return err
	case "sqs":
		url, err := m.sqs.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
			QueueName: aws.String(r.LocalID),
		})
		if err != nil {
			return err
		}
		_, err = m.sqs.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: url.QueueUrl})
		return err
	case "lambda":
		_, err := m.lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
			FunctionName: aws.String(r.LocalID),
		})
		return err
	case "kms":
		// Keys cannot be hard-deleted; schedule at the minimum window.
		_, err := m.kms.ScheduleKeyDeletion(ctx, &kms.ScheduleKeyDeletionInput{
			KeyId:               aws.String(r.LocalID),
			PendingWindowInDays: aws.Int32(7),
		})
		return err
	case "lb":
		_, err := m.elb.DeleteLoadBalancer(ctx, &elasticloadbalancingv2.DeleteLoadBalancerInput{
			LoadBalancerArn: aws.String(r.ARN),
		})
		return err
	case "tg":
		_, err := m.elb.DeleteTargetGroup(ctx, &elasticloadbalancingv2.DeleteTargetGroupInput{
			TargetGroupArn: aws.String(r.ARN),
		})
		return err
	case "asg":
		name := r.LocalID
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		_, err := m.asg.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(name),
		})
		return err
	case "iam":
		_, err := m.iam.DeleteRole(ctx, &iam.DeleteRoleInput{
			RoleName: aws.String(r.LocalID),
		})
		return err
	case "route53":
		_, err := m.route53.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{
			Id: aws.String(r.LocalID),
		})
		return err
	case "rds":
		_, err := m.rds.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
			DBInstanceIdentifier: aws.String(r.LocalID),
			SkipFinalSnapshot:    aws.Bool(true),
		})
		return err
	default:
		return fmt.Errorf("service %s does not support delete", r.Service)
	}
}
