// Package push registers and deregisters device endpoints with Amazon SNS
// mobile push.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/iliyamo/phenom-api/internal/model"
)

// ErrUnsupportedDevice is returned for device types without a platform application.
var ErrUnsupportedDevice = errors.New("unsupported device type")

// Service is the push collaborator used by notification targets.
type Service interface {
	Register(ctx context.Context, deviceType model.DeviceType, deviceID string) (endpointARN string, err error)
	Deregister(ctx context.Context, endpointARN string, deviceType model.DeviceType) error
}

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	DeleteEndpoint(ctx context.Context, in *sns.DeleteEndpointInput, optFns ...func(*sns.Options)) (*sns.DeleteEndpointOutput, error)
}

// SNS implements Service.  Only platforms with a configured application
// ARN are supported; today that is iOS.
type SNS struct {
	client       SNSAPI
	applications map[model.DeviceType]string
}

// NewSNS builds the service.  iosApplicationARN may be empty, in which
// case every registration fails with ErrUnsupportedDevice.
func NewSNS(client SNSAPI, iosApplicationARN string) *SNS {
	apps := map[model.DeviceType]string{}
	if iosApplicationARN != "" {
		apps[model.DeviceTypeIOS] = iosApplicationARN
	}
	return &SNS{client: client, applications: apps}
}

// Register creates a platform endpoint for deviceID and returns its ARN.
func (s *SNS) Register(ctx context.Context, deviceType model.DeviceType, deviceID string) (string, error) {
	app, ok := s.applications[deviceType]
	if !ok {
		return "", ErrUnsupportedDevice
	}
	out, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(app),
		Token:                  aws.String(deviceID),
		CustomUserData:         aws.String("{}"),
	})
	if err != nil {
		return "", fmt.Errorf("sns create endpoint: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// Deregister deletes the platform endpoint.
func (s *SNS) Deregister(ctx context.Context, endpointARN string, deviceType model.DeviceType) error {
	if _, ok := s.applications[deviceType]; !ok {
		return ErrUnsupportedDevice
	}
	if endpointARN == "" {
		return nil
	}
	if _, err := s.client.DeleteEndpoint(ctx, &sns.DeleteEndpointInput{EndpointArn: aws.String(endpointARN)}); err != nil {
		return fmt.Errorf("sns delete endpoint: %w", err)
	}
	return nil
}
