package http

// registerV1Routes sets up the v1 API
// Groups: /api/v1/stations, /api/v1/snapshots
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	stations := v1.Group("/stations")
	{
		stations.GET("", s.handleV1ListStations)
		stations.GET("/:id", s.handleV1GetStation)
	}

	snapshots := v1.Group("/snapshots")
	{
		snapshots.GET("", s.handleV1ListSnapshots)
		snapshots.GET("/latest", s.handleV1LatestSnapshot)
		snapshots.GET("/:id", s.handleV1SnapshotByID)
	}
}
