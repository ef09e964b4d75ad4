// Package realtime carries typed change events from committed writes to
// subscribers of a branch.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTable   Kind = "restaurant_table"
	KindSession Kind = "dining_session"
	KindOrder   Kind = "order"
	KindPayment Kind = "payment"
	KindMenu    Kind = "menu"
	KindStaff   Kind = "staff"
	KindBranch  Kind = "branch"
	KindRole    Kind = "role"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTable, KindSession, KindOrder, KindPayment, KindMenu, KindStaff, KindBranch, KindRole:
		return true
	}
	return false
}

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event names the changed row. It carries identity only; subscribers fetch
// the row itself when they need it.
type Event struct {
	Kind     Kind      `json:"kind"`
	ID       uuid.UUID `json:"id"`
	Op       Op        `json:"op"`
	BranchID uuid.UUID `json:"branch_id"`
	At       time.Time `json:"at"`
}

func NewEvent(kind Kind, op Op, id, branchID uuid.UUID) Event {
	return Event{Kind: kind, ID: id, Op: op, BranchID: branchID, At: time.Now().UTC()}
}

// Publisher delivers events on a best effort basis. It never fails the write
// that produced them.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Multi fans events out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...Event) {
	for _, p := range m {
		p.Publish(ctx, events...)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, ...Event) {}
