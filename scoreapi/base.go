// Package scoreapi is the service layer of the scoring engine. It wires
// the database, the scoring format registry and the rating scheduler
// together, and enforces the membership and window rules along the way.
package scoreapi

import (
	"fmt"

	"github.com/MagnetarProjects/magnetar/db"
	"github.com/MagnetarProjects/magnetar/scoring"
)

type BaseAPI struct {
	db      *db.DB
	labeler *scoring.ScriptLabeler
}

func GetBaseAPI(base *db.DB) (*BaseAPI, error) {
	labeler, err := scoring.NewScriptLabeler()
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize label scripts: %w", err)
	}
	return &BaseAPI{
		db:      base,
		labeler: labeler,
	}, nil
}

func (s *BaseAPI) Close() {
	s.db.Close()
}
