package service

import (
	"context"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/PeRDy/barrenero-api/internal/entity"
)

// StatusService reports local device and miner service status. It shells out
// to the system tools that own that information; it is a display-only
// collaborator of the aggregation core and every failure degrades to null.
type StatusService struct {
	// miners maps container name to display name.
	miners map[string]string
	logger *zap.Logger

	// runner executes a command and returns its stdout, replaceable in
	// tests.
	runner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewStatusService creates a new StatusService.
func NewStatusService(miners map[string]string, logger *zap.Logger) *StatusService {
	return &StatusService{
		miners: miners,
		logger: logger.Named("StatusService"),
		runner: runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

var graphicsKeys = []string{"id", "power", "fan", "gpu_usage", "mem_usage", "gpu_clock", "mem_clock"}

// Status gathers both reports.
func (s *StatusService) Status(ctx context.Context) *entity.SystemStatus {
	return &entity.SystemStatus{
		Graphics: s.GraphicsStatus(ctx),
		Services: s.ServicesStatus(ctx),
	}
}

// GraphicsStatus queries nvidia-smi for per-card power, fan, load and clock
// figures. Returns nil when the tool is missing or its output cannot be
// read.
func (s *StatusService) GraphicsStatus(ctx context.Context) []entity.GraphicCardStatus {
	out, err := s.runner(ctx, "nvidia-smi",
		"--query-gpu=index,power.draw,fan.speed,utilization.gpu,utilization.memory,clocks.gr,clocks.mem",
		"--format=csv")
	if err != nil {
		s.logger.Warn("Cannot get graphics status", zap.Error(err))
		return nil
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	// Skip the csv header; keep only the leading number of each "value unit"
	// cell.
	cards := make([]entity.GraphicCardStatus, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := strings.Split(line, ", ")
		if len(cells) != len(graphicsKeys) {
			s.logger.Warn("Unexpected nvidia-smi row", zap.String("row", line))
			return nil
		}

		values := make([]string, len(cells))
		for i, cell := range cells {
			values[i] = strings.Fields(cell)[0]
		}
		cards = append(cards, entity.GraphicCardStatus{
			ID:       values[0],
			Power:    values[1],
			Fan:      values[2],
			GPUUsage: values[3],
			MemUsage: values[4],
			GPUClock: values[5],
			MemClock: values[6],
		})
	}
	return cards
}

// ServicesStatus reports whether each configured miner container is running,
// based on the docker process list.
func (s *StatusService) ServicesStatus(ctx context.Context) []entity.ServiceStatus {
	out, err := s.runner(ctx, "docker", "ps", "--filter", "name=barrenero-miner", "--format", "{{.Names}}")
	if err != nil {
		s.logger.Warn("Cannot get services status", zap.Error(err))
		out = ""
	}

	running := make(map[string]bool)
	for _, name := range strings.Split(strings.TrimSpace(out), "\n") {
		if name != "" {
			running[name] = true
		}
	}

	containers := make([]string, 0, len(s.miners))
	for container := range s.miners {
		containers = append(containers, container)
	}
	sort.Strings(containers)

	services := make([]entity.ServiceStatus, 0, len(containers))
	for _, container := range containers {
		status := "inactive"
		if running[container] {
			status = "active"
		}
		services = append(services, entity.ServiceStatus{Name: s.miners[container], Status: status})
	}
	return services
}
