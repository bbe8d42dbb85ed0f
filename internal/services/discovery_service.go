package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
)

// minSupportedAPI is the oldest API major version the client has been used against.
var minSupportedAPI = semver.MustParse("4.0.0")

// JSONGetter fetches a bare JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, result any) error
}

// DiscoveryService resolves the versioned HTTPS base URL of the appliance.
type DiscoveryService struct {
	host          string
	discoveryPath string
	client        JSONGetter
	logger        zerolog.Logger
}

// NewDiscoveryService creates a resolver. client must be bound to the plaintext
// http://<host>/ base.
func NewDiscoveryService(host, discoveryPath string, client JSONGetter, logger zerolog.Logger) *DiscoveryService {
	return &DiscoveryService{
		host:          host,
		discoveryPath: discoveryPath,
		client:        client,
		logger:        logger,
	}
}

// Resolve performs the single discovery call. It never retries.
func (ds *DiscoveryService) Resolve(ctx context.Context) (credentials.ConnectionInfo, error) {
	var resp models.DiscoveryResponse
	if err := ds.client.GetJSON(ctx, ds.discoveryPath, &resp); err != nil {
		return credentials.ConnectionInfo{}, &ResolutionError{Err: err}
	}

	if resp.APIBaseURL == "" {
		return credentials.ConnectionInfo{}, &ResolutionError{Err: errors.New("discovery response has no api_base_url")}
	}

	major, err := ds.majorVersion(resp.APIVersion)
	if err != nil {
		return credentials.ConnectionInfo{}, &ResolutionError{Err: err}
	}

	info := credentials.ConnectionInfo{
		BaseURL:    BaseURL(ds.host, resp.APIBaseURL, major),
		DeviceName: resp.DeviceName,
		UID:        resp.UID,
		APIVersion: resp.APIVersion,
	}

	ds.logger.Info().
		Str("base_url", info.BaseURL).
		Str("api_version", resp.APIVersion).
		Str("device_name", resp.DeviceName).
		Msg("Resolved appliance API endpoint")

	return info, nil
}

// BaseURL composes the versioned HTTPS base path.
func BaseURL(host, apiBaseURL string, major uint64) string {
	return fmt.Sprintf("https://%s%sv%d/", host, apiBaseURL, major)
}

// majorVersion extracts the integer before the first dot of apiVersion.
func (ds *DiscoveryService) majorVersion(apiVersion string) (uint64, error) {
	if v, err := semver.NewVersion(apiVersion); err == nil {
		if v.LessThan(minSupportedAPI) {
			ds.logger.Warn().Str("api_version", apiVersion).Msg("Appliance API is older than the supported minimum")
		}
		return v.Major(), nil
	}

	prefix, _, _ := strings.Cut(apiVersion, ".")
	major, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable api_version %q", apiVersion)
	}
	return major, nil
}
