package component

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fake records its lifecycle calls into a shared journal.
type fake struct {
	name     string
	startErr error
	stopErr  error
	status   HealthStatus
	journal  *[]string
}

func (f *fake) Name() string { return f.name }

func (f *fake) Start(context.Context) error {
	f.note("start")
	return f.startErr
}

func (f *fake) Stop(context.Context) error {
	f.note("stop")
	return f.stopErr
}

func (f *fake) Health(context.Context) Health {
	return Health{Name: f.name, Status: f.status}
}

func (f *fake) note(op string) {
	if f.journal != nil {
		*f.journal = append(*f.journal, op+" "+f.name)
	}
}

type described struct{ fake }

func (d *described) Describe() Description {
	return Description{Name: "Store", Type: "database", Details: "sqlite"}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fake{name: "store"}))
	assert.Error(t, r.Register(&fake{name: "store"}))

	assert.Equal(t, "store", r.Get("store").Name())
	assert.Nil(t, r.Get("relay"))
}

func TestRegistryLifecycleOrder(t *testing.T) {
	var journal []string
	r := NewRegistry(nil)
	for _, n := range []string{"store", "relay", "server"} {
		require.NoError(t, r.Register(&fake{name: n, journal: &journal}))
	}

	require.NoError(t, r.StartAll(context.Background()))
	require.NoError(t, r.StopAll(context.Background()))

	assert.Equal(t, []string{
		"start store", "start relay", "start server",
		"stop server", "stop relay", "stop store",
	}, journal)
}

func TestRegistryStartFailureStopsOnlyStarted(t *testing.T) {
	var journal []string
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fake{name: "store", journal: &journal}))
	require.NoError(t, r.Register(&fake{name: "relay", journal: &journal, startErr: errors.New("dial refused")}))
	require.NoError(t, r.Register(&fake{name: "server", journal: &journal}))

	err := r.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay")
	assert.Contains(t, err.Error(), "dial refused")

	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, []string{"start store", "start relay", "stop store"}, journal)
}

func TestRegistryStopAllJoinsErrors(t *testing.T) {
	var journal []string
	boom := errors.New("boom")
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fake{name: "store", journal: &journal, stopErr: boom}))
	require.NoError(t, r.Register(&fake{name: "relay", journal: &journal}))
	require.NoError(t, r.StartAll(context.Background()))

	err := r.StopAll(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start store", "start relay", "stop relay", "stop store"}, journal)

	// A second StopAll has nothing left to stop.
	assert.NoError(t, r.StopAll(context.Background()))
}

func TestRegistryHealthAll(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fake{name: "store", status: StatusHealthy}))
	require.NoError(t, r.Register(&fake{name: "relay", status: StatusDegraded}))

	got := r.HealthAll(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, Health{Name: "store", Status: StatusHealthy}, got[0])
	assert.Equal(t, Health{Name: "relay", Status: StatusDegraded}, got[1])
}

func TestRegistryStartsDescribable(t *testing.T) {
	var journal []string
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&described{fake{name: "store", journal: &journal}}))
	require.NoError(t, r.StartAll(context.Background()))
	assert.Equal(t, []string{"start store"}, journal)
}
