package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStatusService(runner func(ctx context.Context, name string, args ...string) (string, error)) *StatusService {
	s := NewStatusService(map[string]string{
		"barrenero-miner-ether": "Ether",
		"barrenero-miner-storj": "Storj",
	}, zap.NewNop())
	s.runner = runner
	return s
}

func TestStatusService_GraphicsStatus(t *testing.T) {
	out := "index, power.draw [W], fan.speed [%], utilization.gpu [%], utilization.memory [%], clocks.current.graphics [MHz], clocks.current.memory [MHz]\n" +
		"0, 117.23 W, 55 %, 100 %, 73 %, 1885 MHz, 4513 MHz\n" +
		"1, 98.01 W, 48 %, 100 %, 70 %, 1873 MHz, 4513 MHz\n"
	s := newStatusService(func(ctx context.Context, name string, args ...string) (string, error) {
		assert.Equal(t, "nvidia-smi", name)
		return out, nil
	})

	cards := s.GraphicsStatus(context.Background())

	require.Len(t, cards, 2)
	assert.Equal(t, "0", cards[0].ID)
	assert.Equal(t, "117.23", cards[0].Power)
	assert.Equal(t, "55", cards[0].Fan)
	assert.Equal(t, "1885", cards[0].GPUClock)
	assert.Equal(t, "1", cards[1].ID)
	assert.Equal(t, "4513", cards[1].MemClock)
}

// A host without the tool reports no graphics section rather than failing.
func TestStatusService_GraphicsStatusToolMissing(t *testing.T) {
	s := newStatusService(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	})

	assert.Nil(t, s.GraphicsStatus(context.Background()))
}

func TestStatusService_GraphicsStatusMalformedRow(t *testing.T) {
	out := "index, power.draw [W]\n0, 117.23 W\n"
	s := newStatusService(func(ctx context.Context, name string, args ...string) (string, error) {
		return out, nil
	})

	assert.Nil(t, s.GraphicsStatus(context.Background()))
}

func TestStatusService_ServicesStatus(t *testing.T) {
	s := newStatusService(func(ctx context.Context, name string, args ...string) (string, error) {
		assert.Equal(t, "docker", name)
		return "barrenero-miner-ether\n", nil
	})

	services := s.ServicesStatus(context.Background())

	require.Len(t, services, 2)
	assert.Equal(t, "Ether", services[0].Name)
	assert.Equal(t, "active", services[0].Status)
	assert.Equal(t, "Storj", services[1].Name)
	assert.Equal(t, "inactive", services[1].Status)
}

// Without docker every configured miner is reported inactive.
func TestStatusService_ServicesStatusDockerMissing(t *testing.T) {
	s := newStatusService(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	})

	services := s.ServicesStatus(context.Background())

	require.Len(t, services, 2)
	assert.Equal(t, "inactive", services[0].Status)
	assert.Equal(t, "inactive", services[1].Status)
}
