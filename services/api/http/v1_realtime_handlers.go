package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/bixi-station-insights/services/api/db"
)

// handleV1LatestSnapshot returns the most recent snapshot, served from an
// in-process cache for cfg.CacheTTL
// GET /api/v1/snapshots/latest
func (s *Server) handleV1LatestSnapshot(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	snap, cached, err := s.latestSnapshot(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snap,
		"meta": gin.H{
			"taken_at":     snap.TakenAt.Format(time.RFC3339),
			"count":        len(snap.Stations),
			"cached":       cached,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) latestSnapshot(ctx context.Context) (*db.SnapshotDetail, bool, error) {
	if s.cfg.CacheTTL > 0 {
		if v, err := s.latest.Get(latestKey); err == nil {
			return v.(*db.SnapshotDetail), true, nil
		} else if !errors.Is(err, gcache.KeyNotFoundError) {
			log.Printf("latest snapshot cache: %v", err)
		}
	}

	snap, err := s.store.LatestSnapshot(ctx)
	if err != nil || snap == nil {
		return snap, false, err
	}

	if s.cfg.CacheTTL > 0 {
		if err := s.latest.Set(latestKey, snap); err != nil {
			log.Printf("latest snapshot cache: %v", err)
		}
	}
	return snap, false, nil
}
