package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"google.golang.org/api/option"
	"google.golang.org/api/sqladmin/v1"
)

// CloudSQL discovers runnable Cloud SQL instances of the configured engine
// in one project.
type CloudSQL struct {
	Service   *sqladmin.Service
	ProjectID string
	Engine    string
	PrivateIP bool
}

func NewCloudSQL(ctx context.Context, cfg CloudSQLConfig, engine string, opts ...option.ClientOption) (*CloudSQL, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	service, err := sqladmin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL admin client: %w", err)
	}
	return &CloudSQL{
		Service:   service,
		ProjectID: cfg.ProjectID,
		Engine:    engine,
		PrivateIP: cfg.PrivateIP,
	}, nil
}

func (c *CloudSQL) Name() string { return "cloudsql" }

func (c *CloudSQL) Hosts(ctx context.Context) ([]string, error) {
	wantIP := "PRIMARY"
	if c.PrivateIP {
		wantIP = "PRIVATE"
	}

	var hosts []string
	err := c.Service.Instances.List(c.ProjectID).Pages(ctx, func(page *sqladmin.InstancesListResponse) error {
		for _, instance := range page.Items {
			if instance.State != "RUNNABLE" || cloudSQLEngineFamily(instance.DatabaseVersion) != c.Engine {
				continue
			}
			for _, ip := range instance.IpAddresses {
				if ip.Type == wantIP && ip.IpAddress != "" {
					hosts = append(hosts, ip.IpAddress)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing Cloud SQL instances of %s: %w", c.ProjectID, err)
	}
	return hosts, nil
}

func cloudSQLEngineFamily(databaseVersion string) string {
	switch {
	case strings.HasPrefix(databaseVersion, "MYSQL_"):
		return fleet.EngineMySQL
	case strings.HasPrefix(databaseVersion, "POSTGRES_"):
		return fleet.EnginePostgres
	}
	return ""
}
