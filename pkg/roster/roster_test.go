package roster

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	hosts []string
	err   error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Hosts(context.Context) ([]string, error) { return f.hosts, f.err }

func TestCollect(t *testing.T) {
	logger, hook := test.NewNullLogger()

	hosts := Collect(context.Background(), logger,
		Static{"db-1", " db-2 ", ""},
		fakeSource{name: "broken", err: errors.New("throttled")},
		fakeSource{name: "rds", hosts: []string{"db-2", "db-3:3307", "db-1"}},
	)

	assert.Equal(t, []string{"db-1", "db-2", "db-3:3307"}, hosts)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "broken", entry.Data["source"])
	assert.Contains(t, entry.Message, "throttled")
}

func TestCollect_Empty(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Empty(t, Collect(context.Background(), logger, Static(nil)))
	assert.Empty(t, Collect(context.Background(), logger))
}

func TestStaticReturnsCopy(t *testing.T) {
	static := Static{"a", "b"}
	hosts, err := static.Hosts(context.Background())
	require.NoError(t, err)
	hosts[0] = "changed"
	assert.Equal(t, "a", static[0])
}

func TestParseHostList(t *testing.T) {
	assert.Equal(t, []string{"db-1", "db-2:3307", "db-3"}, ParseHostList("db-1, db-2:3307\ndb-3,,"))
	assert.Empty(t, ParseHostList(""))
}
