package service_registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/fbx-agent/internal/mocks"
	"github.com/benmeehan/fbx-agent/internal/service_registry"
	"github.com/benmeehan/fbx-agent/internal/utils"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// fakeService records lifecycle calls into a shared journal.
type fakeService struct {
	name     string
	journal  *[]string
	startErr error
	stopErr  error
}

func (f *fakeService) Start() error {
	*f.journal = append(*f.journal, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.journal = append(*f.journal, "stop "+f.name)
	return f.stopErr
}

type idleRunner struct{}

func (idleRunner) WithSession(ctx context.Context, fn func(ctx context.Context, r transport.Requester) error) error {
	return nil
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	var journal []string
	sr := service_registry.NewServiceRegistry(nil, idleRunner{}, zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", journal: &journal})
	sr.RegisterService("b", &fakeService{name: "b", journal: &journal})
	sr.RegisterService("a", &fakeService{name: "duplicate", journal: &journal})

	require.Equal(t, 2, sr.Len())
	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, journal)
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	var journal []string
	sr := service_registry.NewServiceRegistry(nil, idleRunner{}, zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", journal: &journal})
	sr.RegisterService("b", &fakeService{name: "b", journal: &journal, startErr: errors.New("boom")})
	sr.RegisterService("c", &fakeService{name: "c", journal: &journal})

	err := sr.StartServices()

	assert.ErrorContains(t, err, "failed to start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, journal)
}

func TestServiceRegistry_StopJoinsErrors(t *testing.T) {
	var journal []string
	first := errors.New("first")
	second := errors.New("second")
	sr := service_registry.NewServiceRegistry(nil, idleRunner{}, zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", journal: &journal, stopErr: first})
	sr.RegisterService("b", &fakeService{name: "b", journal: &journal, stopErr: second})

	err := sr.StopServices()

	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestServiceRegistry_RegisterServices(t *testing.T) {
	var config utils.Config
	config.ApplyDefaults()

	disabled := service_registry.NewServiceRegistry(nil, idleRunner{}, zerolog.Nop())
	require.NoError(t, disabled.RegisterServices(&config))
	assert.Equal(t, 0, disabled.Len())

	config.Services.Publisher.Enabled = true

	noBroker := service_registry.NewServiceRegistry(nil, idleRunner{}, zerolog.Nop())
	assert.Error(t, noBroker.RegisterServices(&config))

	withBroker := service_registry.NewServiceRegistry(new(mocks.MockMQTTClient), idleRunner{}, zerolog.Nop())
	require.NoError(t, withBroker.RegisterServices(&config))
	assert.Equal(t, 1, withBroker.Len())
}
