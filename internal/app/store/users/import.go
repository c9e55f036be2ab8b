// internal/app/store/users/import.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/contenthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
)

// ImportResult summarizes a bulk insert.
type ImportResult struct {
	Inserted   int      `json:"inserted"`
	Duplicates []string `json:"duplicates,omitempty"`
	Invalid    []string `json:"invalid,omitempty"`
}

// InsertMany inserts users one at a time so a duplicate or invalid row does
// not abort the batch. Passwords must already be hashed.
func (s *Store) InsertMany(ctx context.Context, users []models.User, by *models.ActorRef) (ImportResult, error) {
	var res ImportResult
	now := time.Now().UTC()

	for _, u := range users {
		u.CreatedBy = by
		prepared, err := prepareNew(u, now)
		if err != nil {
			res.Invalid = append(res.Invalid, u.Email)
			continue
		}
		if _, err := s.c.InsertOne(ctx, prepared); err != nil {
			if wafflemongo.IsDup(err) {
				res.Duplicates = append(res.Duplicates, prepared.Email)
				continue
			}
			return res, err
		}
		res.Inserted++
	}
	return res, nil
}
