package roster

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
)

// RDS discovers available RDS and Aurora instances of the configured engine.
type RDS struct {
	Client rds.DescribeDBInstancesAPIClient
	Engine string
	// Prefix keeps only instances whose identifier starts with it.
	Prefix string
}

func NewRDS(ctx context.Context, cfg RDSConfig, engine string) (*RDS, error) {
	awsCfg, err := FetchAWSConfig(cfg.AWSAccessKey, cfg.AWSSecretAccessKey, cfg.AWSRegion, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &RDS{
		Client: rds.NewFromConfig(awsCfg),
		Engine: engine,
		Prefix: cfg.IdentifierPrefix,
	}, nil
}

func (r *RDS) Name() string { return "rds" }

func (r *RDS) Hosts(ctx context.Context) ([]string, error) {
	var hosts []string
	paginator := rds.NewDescribeDBInstancesPaginator(r.Client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing DB instances: %w", err)
		}
		for _, instance := range page.DBInstances {
			if aws.ToString(instance.DBInstanceStatus) != "available" {
				continue
			}
			if rdsEngineFamily(aws.ToString(instance.Engine)) != r.Engine {
				continue
			}
			if !strings.HasPrefix(aws.ToString(instance.DBInstanceIdentifier), r.Prefix) {
				continue
			}
			if instance.Endpoint == nil || aws.ToString(instance.Endpoint.Address) == "" {
				continue
			}
			host := aws.ToString(instance.Endpoint.Address)
			if port := aws.ToInt32(instance.Endpoint.Port); port != 0 {
				host = net.JoinHostPort(host, strconv.Itoa(int(port)))
			}
			hosts = append(hosts, host)
		}
	}
	return hosts, nil
}

func rdsEngineFamily(engine string) string {
	switch strings.ToLower(engine) {
	case "mysql", "mariadb", "aurora", "aurora-mysql":
		return fleet.EngineMySQL
	case "postgres", "aurora-postgresql":
		return fleet.EnginePostgres
	}
	return ""
}

// FetchAWSConfig loads the AWS configuration for region, with static
// credentials when both keys are given and the default chain otherwise.
func FetchAWSConfig(
	AWSAccessKey string,
	AWSSecretAccessKey string,
	AWSRegion string,
	ctx context.Context,
) (aws.Config, error) {
	region := config.WithRegion(AWSRegion)
	if AWSAccessKey != "" && AWSSecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(AWSAccessKey, AWSSecretAccessKey, "")
		return config.LoadDefaultConfig(ctx, region, config.WithCredentialsProvider(creds))
	}
	// Default chain, including web identity tokens.
	return config.LoadDefaultConfig(ctx, region)
}
