package roster

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Source yields hosts to monitor. A host is a DNS name or address, optionally
// with a port.
type Source interface {
	Name() string
	Hosts(ctx context.Context) ([]string, error)
}

// Collect merges the hosts of every source in order, trimming blanks and
// dropping duplicates. A failing source is logged and skipped so that one
// broken discovery backend does not empty the roster.
func Collect(ctx context.Context, logger *log.Logger, sources ...Source) []string {
	seen := make(map[string]struct{})
	var hosts []string
	for _, source := range sources {
		found, err := source.Hosts(ctx)
		if err != nil {
			logger.WithField("source", source.Name()).Errorf("Host discovery failed: %v", err)
			continue
		}
		logger.Debugf("[roster] %s yielded %d host(s)", source.Name(), len(found))
		for _, host := range found {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			if _, ok := seen[host]; ok {
				continue
			}
			seen[host] = struct{}{}
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Static is a fixed list of hosts.
type Static []string

func (s Static) Name() string { return "static" }

func (s Static) Hosts(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// ParseHostList splits a comma or whitespace separated host list.
func ParseHostList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}
