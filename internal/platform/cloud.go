package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Namespace for emitted metrics.
const metricNamespace = "TravelGenie/Mock"

// metricsAPI is the CloudWatch surface the provider uses.
type metricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudProvider samples host resources and pushes metrics to
// CloudWatch under the Platform dimension. It reports no job info.
type CloudProvider struct {
	name   string
	client metricsAPI
	logger *zap.Logger
}

// NewCloudProvider builds a provider emitting to CloudWatch. With empty
// credentials the ambient AWS credential chain is used.
func NewCloudProvider(name, region, accessKey, secretKey string, logger *zap.Logger) (*CloudProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &CloudProvider{
		name:   name,
		client: cloudwatch.NewFromConfig(cfg),
		logger: logger,
	}, nil
}

// Name implements Provider.
func (p *CloudProvider) Name() string { return p.name }

// ResourceSnapshot implements Provider.
func (p *CloudProvider) ResourceSnapshot(ctx context.Context) Snapshot {
	return sampleHost(ctx, p.logger)
}

// JobInfo implements Provider. Cloud hosts have no scheduler.
func (p *CloudProvider) JobInfo(ctx context.Context) JobInfo { return JobInfo{} }

// EmitMetric implements Provider.
func (p *CloudProvider) EmitMetric(ctx context.Context, m Metric) error {
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(m.Name),
			Value:      aws.Float64(m.Value),
			Unit:       types.StandardUnit(m.Unit),
			Timestamp:  aws.Time(time.Now()),
			Dimensions: []types.Dimension{{
				Name:  aws.String("Platform"),
				Value: aws.String(p.name),
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", m.Name, err)
	}
	return nil
}
