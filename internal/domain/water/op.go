package water

import (
	"fmt"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
)

type OpKind int

const (
	OpAdd OpKind = iota + 1
	OpUpdate
	OpRemove
	OpSetGoal
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	case OpSetGoal:
		return "set_goal"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is a named delta against one daily record. IntakeID scopes add,
// update and remove to a single intake entry.
type Op struct {
	Kind       OpKind
	IntakeID   string
	Ml         int
	ConsumedAt time.Time
	Goal       int
}

func AddOp(id string, ml int, consumedAt time.Time) Op {
	return Op{Kind: OpAdd, IntakeID: id, Ml: ml, ConsumedAt: consumedAt}
}

func UpdateOp(id string, ml int, consumedAt time.Time) Op {
	return Op{Kind: OpUpdate, IntakeID: id, Ml: ml, ConsumedAt: consumedAt}
}

func RemoveOp(id string) Op { return Op{Kind: OpRemove, IntakeID: id} }

func SetGoalOp(goal int) Op { return Op{Kind: OpSetGoal, Goal: goal} }

// Apply derives the record that results from op.
func Apply(rec *entity.DailyWaterRecord, op Op) (*entity.DailyWaterRecord, error) {
	switch op.Kind {
	case OpAdd:
		return ApplyAdd(rec, op.IntakeID, op.Ml, op.ConsumedAt), nil
	case OpUpdate:
		return ApplyUpdate(rec, op.IntakeID, op.Ml, op.ConsumedAt)
	case OpRemove:
		return ApplyRemove(rec, op.IntakeID)
	case OpSetGoal:
		return ApplyGoal(rec, op.Goal), nil
	default:
		return nil, fmt.Errorf("unsupported water op %s", op.Kind)
	}
}
