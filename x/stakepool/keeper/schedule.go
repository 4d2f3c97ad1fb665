package keeper

import (
	"math"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/btree"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

const scheduleDegree = 16

// unlockItem orders positions by (UnlockAt, PositionID)
type unlockItem struct {
	unlockAt   int64
	positionID uint64
	position   *types.Position
}

// Less implements btree.Item
func (a *unlockItem) Less(b btree.Item) bool {
	o := b.(*unlockItem)
	if a.unlockAt != o.unlockAt {
		return a.unlockAt < o.unlockAt
	}
	return a.positionID < o.positionID
}

// UnlockSchedule is an in-memory index of active positions keyed by unlock time
type UnlockSchedule struct {
	tree *btree.BTree
	now  int64
}

// BuildUnlockSchedule indexes all active positions as of the block time
func (k *Keeper) BuildUnlockSchedule(ctx sdk.Context) *UnlockSchedule {
	s := &UnlockSchedule{
		tree: btree.New(scheduleDegree),
		now:  ctx.BlockTime().Unix(),
	}
	for _, position := range k.GetAllPositions(ctx) {
		if !position.Active {
			continue
		}
		s.tree.ReplaceOrInsert(&unlockItem{
			unlockAt:   position.UnlockAt,
			positionID: position.PositionID,
			position:   position,
		})
	}
	return s
}

// Len returns the number of indexed positions
func (s *UnlockSchedule) Len() int {
	return s.tree.Len()
}

// Range returns up to limit entries with from <= UnlockAt < to, earliest first.
// A zero to means no upper bound and a zero limit means no limit.
func (s *UnlockSchedule) Range(from, to int64, limit int) []types.ScheduleEntry {
	if to == 0 {
		to = math.MaxInt64
	}
	entries := []types.ScheduleEntry{}
	s.tree.AscendRange(&unlockItem{unlockAt: from}, &unlockItem{unlockAt: to}, func(item btree.Item) bool {
		p := item.(*unlockItem).position
		entries = append(entries, types.ScheduleEntry{
			PositionID: p.PositionID,
			Owner:      p.Owner,
			PoolID:     p.PoolID,
			Principal:  p.Principal(),
			UnlockAt:   p.UnlockAt,
			Unlocked:   !p.IsLocked(s.now),
		})
		return limit == 0 || len(entries) < limit
	})
	return entries
}

// Next returns the earliest entry still locked, if any
func (s *UnlockSchedule) Next() (types.ScheduleEntry, bool) {
	entries := s.Range(s.now+1, 0, 1)
	if len(entries) == 0 {
		return types.ScheduleEntry{}, false
	}
	return entries[0], true
}
