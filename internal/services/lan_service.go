package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// LanService reads the appliance's LAN browser.
type LanService struct {
	logger zerolog.Logger
}

// NewLanService creates a LanService.
func NewLanService(logger zerolog.Logger) *LanService {
	return &LanService{logger: logger}
}

// ListHosts returns every host known on iface ("pub" when empty).
func (ls *LanService) ListHosts(ctx context.Context, r transport.Requester, iface string) ([]models.LanHost, error) {
	if iface == "" {
		iface = "pub"
	}

	var hosts []models.LanHost
	if err := r.Get(ctx, fmt.Sprintf(constants.PathLanBrowser, iface), &hosts); err != nil {
		return nil, fmt.Errorf("failed to list LAN hosts: %w", err)
	}

	ls.logger.Debug().Str("interface", iface).Int("hosts", len(hosts)).Msg("Listed LAN hosts")
	return hosts, nil
}

// Summarize counts total and active hosts.
func Summarize(hosts []models.LanHost) models.LanSummary {
	summary := models.LanSummary{Total: len(hosts)}
	for _, h := range hosts {
		if h.Active {
			summary.Active++
		}
	}
	return summary
}
