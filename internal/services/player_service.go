package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/internal/utils"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// PlayerService reads and drives the player units attached to the appliance.
type PlayerService struct {
	workers int
	logger  zerolog.Logger
}

// NewPlayerService creates a PlayerService. workers bounds StatusAll fan-out.
func NewPlayerService(workers int, logger zerolog.Logger) *PlayerService {
	if workers < 1 {
		workers = constants.DefaultStatusWorkers
	}
	return &PlayerService{workers: workers, logger: logger}
}

// List returns the players known to the appliance.
func (ps *PlayerService) List(ctx context.Context, r transport.Requester) ([]models.Player, error) {
	var players []models.Player
	if err := r.Get(ctx, constants.PathPlayers, &players); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// Status reads the state of one player.
func (ps *PlayerService) Status(ctx context.Context, r transport.Requester, playerID int) (*models.PlayerStatus, error) {
	var status models.PlayerStatus
	if err := r.Get(ctx, fmt.Sprintf(constants.PathPlayerStatus, playerID), &status); err != nil {
		return nil, fmt.Errorf("failed to read status of player %d: %w", playerID, err)
	}
	return &status, nil
}

// Launch asks a player to open url.
func (ps *PlayerService) Launch(ctx context.Context, r transport.Requester, playerID int, url string) error {
	if url == "" {
		return errors.New("launch url must not be empty")
	}
	if err := r.Post(ctx, fmt.Sprintf(constants.PathPlayerOpen, playerID), models.OpenRequest{URL: url}, nil); err != nil {
		return fmt.Errorf("failed to launch on player %d: %w", playerID, err)
	}
	ps.logger.Info().Int("player_id", playerID).Msg("Launched content on player")
	return nil
}

// StatusAll reads the status of every reachable player concurrently. Per-player
// failures are reported in the snapshot, not as an error, except for session
// expiry which is returned so the caller can log in again.
func (ps *PlayerService) StatusAll(ctx context.Context, r transport.Requester, players []models.Player) ([]models.PlayerSnapshot, error) {
	results := cmap.New[models.PlayerSnapshot]()
	pool := utils.NewWorkerPool(ctx, ps.workers)

	for _, player := range players {
		player := player
		if !player.Reachable || !player.APIAvailable {
			results.Set(strconv.Itoa(player.ID), models.PlayerSnapshot{Player: player, Error: "player unreachable"})
			continue
		}
		pool.Submit(func(ctx context.Context) {
			snapshot := models.PlayerSnapshot{Player: player}
			status, err := ps.Status(ctx, r, player.ID)
			if err != nil {
				snapshot.Error = err.Error()
				if code, ok := transport.ErrorCode(err); ok && constants.IsSessionExpiredCode(code) {
					results.Set(sessionExpiredKey, models.PlayerSnapshot{Error: code})
				}
			} else {
				snapshot.Status = status
			}
			results.Set(strconv.Itoa(player.ID), snapshot)
		})
	}
	pool.Shutdown()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if expired, ok := results.Get(sessionExpiredKey); ok {
		return nil, &transport.APIError{Code: expired.Error, Message: "session expired during player status fan-out"}
	}

	snapshots := make([]models.PlayerSnapshot, 0, results.Count())
	for _, snapshot := range results.Items() {
		snapshots = append(snapshots, snapshot)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Player.ID < snapshots[j].Player.ID })
	return snapshots, nil
}

// sessionExpiredKey marks that at least one status read hit an expired session.
// It cannot collide with a numeric player id.
const sessionExpiredKey = "session-expired"
