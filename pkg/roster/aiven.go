package roster

import (
	"context"
	"fmt"
	"net"

	aivenclient "github.com/aiven/go-client-codegen"
	"github.com/aiven/go-client-codegen/handler/service"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
)

// AivenServiceLister is the part of the Aiven client used for discovery.
type AivenServiceLister interface {
	ServiceList(ctx context.Context, project string) ([]service.ServiceOut, error)
}

// Aiven discovers running MySQL or PostgreSQL services of one Aiven project.
type Aiven struct {
	Client  AivenServiceLister
	Project string
	Engine  string
}

func NewAiven(cfg AivenConfig, engine string) (*Aiven, error) {
	client, err := aivenclient.NewClient(aivenclient.TokenOpt(cfg.APIToken))
	if err != nil {
		return nil, fmt.Errorf("failed to create Aiven client: %v", err)
	}
	return &Aiven{Client: client, Project: cfg.ProjectName, Engine: engine}, nil
}

func (a *Aiven) Name() string { return "aiven" }

func (a *Aiven) Hosts(ctx context.Context) ([]string, error) {
	services, err := a.Client.ServiceList(ctx, a.Project)
	if err != nil {
		return nil, fmt.Errorf("listing Aiven services of %s: %w", a.Project, err)
	}

	want := "mysql"
	if a.Engine == fleet.EnginePostgres {
		want = "pg"
	}

	var hosts []string
	for _, s := range services {
		if s.ServiceType != want || s.State != service.ServiceStateTypeRunning {
			continue
		}
		host, port := s.ServiceUriParams["host"], s.ServiceUriParams["port"]
		if host == "" {
			continue
		}
		if port != "" {
			host = net.JoinHostPort(host, port)
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}
