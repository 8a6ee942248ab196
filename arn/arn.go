// Package arn resolves canonical resource addresses. Every supported
// service is one row in the grammar table; adding a service is a data
// change, not new branching.
package arn

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedAddress is returned when an address does not match the
// registered grammar for its service. Always a defect in upstream
// data, never retried.
var ErrMalformedAddress = errors.New("malformed address")

// Ref is a fully resolved resource address.
type Ref struct {
	Service   string
	Region    string
	AccountID string
	LocalID   string
}

// grammar describes how one service encodes its resource part.
// TypeToken is empty for services whose resource part is the bare
// name (s3, sns, sqs). Separator joins TypeToken and the local id and
// is not uniform across services (ec2 uses "/", rds uses ":").
type grammar struct {
	arnService string
	typeToken  string
	separator  string
	hasRegion  bool
	hasAccount bool
	directAPI  bool // not listable through the tagging API
}

var grammars = map[string]grammar{
	"ec2":        {arnService: "ec2", typeToken: "instance", separator: "/", hasRegion: true, hasAccount: true},
	"ebs":        {arnService: "ec2", typeToken: "volume", separator: "/", hasRegion: true, hasAccount: true},
	"sg":         {arnService: "ec2", typeToken: "security-group", separator: "/", hasRegion: true, hasAccount: true},
	"asg":        {arnService: "autoscaling", typeToken: "autoScalingGroup", separator: ":", hasRegion: true, hasAccount: true},
	"s3":         {arnService: "s3"},
	"sns":        {arnService: "sns", hasRegion: true, hasAccount: true},
	"sqs":        {arnService: "sqs", hasRegion: true, hasAccount: true},
	"dynamodb":   {arnService: "dynamodb", typeToken: "table", separator: "/", hasRegion: true, hasAccount: true},
	"cloudwatch": {arnService: "cloudwatch", typeToken: "alarm", separator: ":", hasRegion: true, hasAccount: true},
	"events":     {arnService: "events", typeToken: "rule", separator: "/", hasRegion: true, hasAccount: true},
	"iam":        {arnService: "iam", typeToken: "role", separator: "/", hasAccount: true, directAPI: true},
	"route53":    {arnService: "route53", typeToken: "hostedzone", separator: "/", directAPI: true},
	"lb":         {arnService: "elasticloadbalancing", typeToken: "loadbalancer", separator: "/", hasRegion: true, hasAccount: true},
	"tg":         {arnService: "elasticloadbalancing", typeToken: "targetgroup", separator: "/", hasRegion: true, hasAccount: true},
	"efs":        {arnService: "elasticfilesystem", typeToken: "file-system", separator: "/", hasRegion: true, hasAccount: true},
	"fsx":        {arnService: "fsx", typeToken: "volume", separator: "/", hasRegion: true, hasAccount: true},
	"kms":        {arnService: "kms", typeToken: "key", separator: "/", hasRegion: true, hasAccount: true},
	"rds":        {arnService: "rds", typeToken: "db", separator: ":", hasRegion: true, hasAccount: true},
	"lambda":     {arnService: "lambda", typeToken: "function", separator: ":", hasRegion: true, hasAccount: true},
	"eks":        {arnService: "eks", typeToken: "cluster", separator: "/", hasRegion: true, hasAccount: true},
}

// byARNService indexes grammars by (ARN service, type token) for
// parsing; bare-name services are keyed under the empty token.
var byARNService = func() map[string]map[string]string {
	idx := make(map[string]map[string]string)
	for key, g := range grammars {
		tokens, ok := idx[g.arnService]
		if !ok {
			tokens = make(map[string]string)
			idx[g.arnService] = tokens
		}
		tokens[g.typeToken] = key
	}
	return idx
}()

// Services returns all registered service keys, sorted.
func Services() []string {
	keys := make([]string, 0, len(grammars))
	for k := range grammars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registered reports whether the service key is known.
func Registered(service string) bool {
	_, ok := grammars[service]
	return ok
}

// DirectAPI reports whether the service must be listed through its own
// API instead of the resource groups tagging API.
func DirectAPI(service string) bool {
	return grammars[service].directAPI
}

// ResourceTypeFilter returns the tagging API resource type filter for
// a service ("ec2:instance", or the bare service for s3/sns/sqs).
func ResourceTypeFilter(service string) (string, error) {
	g, ok := grammars[service]
	if !ok {
		return "", fmt.Errorf("unregistered service %q", service)
	}
	if g.typeToken == "" {
		return g.arnService, nil
	}
	return g.arnService + ":" + g.typeToken, nil
}

// Build assembles the canonical address for a resource. Segments the
// service's grammar does not carry are written empty regardless of
// the arguments, so Parse(Build(...)) round-trips.
func Build(service, region, account, localID string) (string, error) {
	g, ok := grammars[service]
	if !ok {
		return "", fmt.Errorf("unregistered service %q: %w", service, ErrMalformedAddress)
	}
	if localID == "" {
		return "", fmt.Errorf("empty local id for service %q: %w", service, ErrMalformedAddress)
	}
	if !g.hasRegion {
		region = ""
	}
	if !g.hasAccount {
		account = ""
	}
	resource := localID
	if g.typeToken != "" {
		resource = g.typeToken + g.separator + localID
	}
	return fmt.Sprintf("arn:aws:%s:%s:%s:%s", g.arnService, region, account, resource), nil
}

// Parse resolves an address into its service key, region, account and
// local id. It is total over the registered service set and fails
// closed with ErrMalformedAddress on any grammar mismatch.
func Parse(address string) (Ref, error) {
	parts := strings.SplitN(address, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" || parts[1] != "aws" {
		return Ref{}, fmt.Errorf("%q: %w", address, ErrMalformedAddress)
	}
	arnService, region, account, resource := parts[2], parts[3], parts[4], parts[5]

	tokens, ok := byARNService[arnService]
	if !ok {
		return Ref{}, fmt.Errorf("%q: unregistered service %q: %w", address, arnService, ErrMalformedAddress)
	}

	key, localID, err := splitResource(tokens, resource)
	if err != nil {
		return Ref{}, fmt.Errorf("%q: %w", address, err)
	}

	g := grammars[key]
	if g.hasRegion != (region != "") || g.hasAccount != (account != "") {
		return Ref{}, fmt.Errorf("%q: region/account segments do not match %s grammar: %w", address, key, ErrMalformedAddress)
	}

	return Ref{Service: key, Region: region, AccountID: account, LocalID: localID}, nil
}

// splitResource matches the resource part against the service's
// registered tokens, checking the separator is the registered one.
func splitResource(tokens map[string]string, resource string) (key, localID string, err error) {
	if resource == "" {
		return "", "", fmt.Errorf("empty resource part: %w", ErrMalformedAddress)
	}

	if i := strings.IndexAny(resource, "/:"); i >= 0 {
		token, sep, rest := resource[:i], string(resource[i]), resource[i+1:]
		if key, ok := tokens[token]; ok {
			if grammars[key].separator != sep {
				return "", "", fmt.Errorf("separator %q does not match %s grammar: %w", sep, key, ErrMalformedAddress)
			}
			if rest == "" {
				return "", "", fmt.Errorf("empty local id: %w", ErrMalformedAddress)
			}
			return key, rest, nil
		}
	}

	// Bare-name grammar (s3, sns, sqs).
	if key, ok := tokens[""]; ok {
		return key, resource, nil
	}
	return "", "", fmt.Errorf("resource part %q matches no registered type: %w", resource, ErrMalformedAddress)
}
