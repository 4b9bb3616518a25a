package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfhaven/shelfsync/pkg/client"
)

// Server is the authoritative progress backend.
type Server interface {
	GetProgress(ctx context.Context, bookID string) (*client.ReadingProgress, error)
	PutProgress(ctx context.Context, p client.ReadingProgress) error
}

// PushLocal uploads the local position for one resource after reconnection.
//
// Policy: the local copy is pushed only when the server holds no position
// for the resource. When the server has one, the server wins and the local
// copy stays behind as a dormant fallback. No timestamp merging.
func (s *Store) PushLocal(ctx context.Context, server Server, resourceID string) error {
	local, err := s.Read(ctx, resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read local position: %w", err)
	}

	_, err = server.GetProgress(ctx, resourceID)
	if err == nil {
		// Server already has a position; it is authoritative
		s.logger.Debug().
			Str("resource_id", resourceID).
			Msg("Server position exists, keeping local copy dormant")
		return nil
	}
	if !errors.Is(err, client.ErrNoProgress) {
		return fmt.Errorf("check server position: %w", err)
	}

	if err := server.PutProgress(ctx, client.ReadingProgress{
		BookID:  local.ResourceID,
		Ratio:   local.Ratio,
		Locator: local.Locator,
	}); err != nil {
		return fmt.Errorf("push local position: %w", err)
	}

	s.logger.Info().
		Str("resource_id", resourceID).
		Float64("ratio", local.Ratio).
		Msg("Pushed local reading position to server")

	return nil
}

// PushAll runs PushLocal for every locally stored position. Failures are
// logged per resource; the first error is returned after all resources
// were attempted.
func (s *Store) PushAll(ctx context.Context, server Server) error {
	positions, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("list local positions: %w", err)
	}

	var firstErr error
	for _, pos := range positions {
		if err := s.PushLocal(ctx, server, pos.ResourceID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("resource_id", pos.ResourceID).
				Msg("Failed to push local position")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
