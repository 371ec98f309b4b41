package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/report"
	"github.com/cloudx-io/clickauction/strategy"
	"github.com/cloudx-io/clickauction/validation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "sims.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// simulate runs a seeded auction where the abstaining bidder declines user 0,
// so the history carries absent bids as well as clicks and misses.
func simulate(t *testing.T, seed int64, rounds int) *report.Envelope {
	t.Helper()
	rnd := core.NewSeededRandSource(seed)
	users, err := core.NewPopulation(3, rnd)
	assert.NoError(t, err)

	bidders := []core.Bidder{
		strategy.NewFixedBidder(0.6),
		&strategy.AbstainingBidder{Inner: strategy.NewFixedBidder(0.4), Skip: map[core.UserID]bool{0: true}},
	}
	auction, err := core.NewAuction(users, bidders, core.Options{Rand: rnd})
	assert.NoError(t, err)
	_, err = auction.Run(rounds)
	assert.NoError(t, err)
	return report.NewEnvelope(auction, seed, core.UncontestedZero)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	check.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	env := simulate(t, 5, 40)

	assert.NoError(t, s.Save(ctx, env))

	loaded, err := s.Load(ctx, env.SimulationID)
	assert.NoError(t, err)

	check.Equal(t, env.SimulationID, loaded.SimulationID)
	check.Equal(t, env.Seed, loaded.Seed)
	check.True(t, env.CreatedAt.Equal(loaded.CreatedAt))
	check.Equal(t, env.Rounds, loaded.Rounds)
	check.Equal(t, env.Users, loaded.Users)
	check.Equal(t, env.Bidders, loaded.Bidders)
	check.Equal(t, env.UncontestedPolicy, loaded.UncontestedPolicy)
	check.Equal(t, env.HistoryHash, loaded.HistoryHash)
	check.Equal(t, env.Records, loaded.Records)
	check.Equal(t, env.HistoryHash, core.ComputeHistoryHash(loaded.Records))
}

func TestLoad_ValidatesAfterStorage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	env := simulate(t, 11, 25)
	assert.NoError(t, s.Save(ctx, env))

	loaded, err := s.Load(ctx, env.SimulationID)
	assert.NoError(t, err)

	result, err := validation.ValidateHistory(&validation.HistoryValidationInput{Envelope: loaded})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}

func TestLoad_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background(), uuid.New())
	check.True(t, errors.Is(err, ErrNotFound))
}

func TestSave_DuplicateIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	env := simulate(t, 2, 5)
	assert.NoError(t, s.Save(ctx, env))

	longer := simulate(t, 2, 10)
	longer.SimulationID = env.SimulationID
	check.Error(t, s.Save(ctx, longer))

	loaded, err := s.Load(ctx, env.SimulationID)
	assert.NoError(t, err)
	check.Equal(t, 10, len(loaded.Records))
}

func TestList_And_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := simulate(t, 1, 3)
	second := simulate(t, 2, 4)
	assert.NoError(t, s.Save(ctx, first))
	assert.NoError(t, s.Save(ctx, second))

	summaries, err := s.List(ctx)
	assert.NoError(t, err)
	check.Equal(t, 2, len(summaries))

	ids := map[uuid.UUID]int{}
	for _, summary := range summaries {
		ids[summary.SimulationID] = summary.Rounds
	}
	check.Equal(t, 3, ids[first.SimulationID])
	check.Equal(t, 4, ids[second.SimulationID])

	assert.NoError(t, s.Delete(ctx, first.SimulationID))
	_, err = s.Load(ctx, first.SimulationID)
	check.True(t, errors.Is(err, ErrNotFound))
	check.True(t, errors.Is(s.Delete(ctx, first.SimulationID), ErrNotFound))

	summaries, err = s.List(ctx)
	assert.NoError(t, err)
	check.Equal(t, 1, len(summaries))
}
