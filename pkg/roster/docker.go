package roster

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ContainerLister is the part of the Docker client used for discovery.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// Docker discovers running local containers carrying a label and publishing
// the engine's port.
type Docker struct {
	Client ContainerLister
	Label  string
	// Port is the container-side port of the database.
	Port uint16
}

func NewDocker(cfg DockerConfig, port int) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %v", err)
	}
	return &Docker{Client: cli, Label: cfg.Label, Port: uint16(port)}, nil
}

func (d *Docker) Name() string { return "docker" }

func (d *Docker) Hosts(ctx context.Context) ([]string, error) {
	filter := filters.NewArgs()
	filter.Add("status", "running")
	if d.Label != "" {
		filter.Add("label", d.Label)
	}

	containers, err := d.Client.ContainerList(ctx, container.ListOptions{Filters: filter})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	var hosts []string
	for _, c := range containers {
		for _, p := range c.Ports {
			if p.PrivatePort != d.Port || p.PublicPort == 0 || p.Type != "tcp" {
				continue
			}
			ip := p.IP
			if ip == "" || ip == "0.0.0.0" || ip == "::" {
				ip = "127.0.0.1"
			}
			hosts = append(hosts, net.JoinHostPort(ip, strconv.Itoa(int(p.PublicPort))))
			break
		}
	}
	return hosts, nil
}
