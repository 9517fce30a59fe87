package service

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/credit-engine/internal/domain"
)

// SelectTarget picks the installment a payment applies to: overdue before
// not-yet-overdue, then earliest due date. Ties fall back to the older
// purchase, then the sequence number, so the choice never depends on
// storage order. Installments without a balance are ignored; nil means
// nothing is owed.
func SelectTarget(installments []*domain.Installment, purchaseCreated map[uuid.UUID]time.Time, today time.Time) *domain.Installment {
	candidates := make([]*domain.Installment, 0, len(installments))
	for _, inst := range installments {
		if inst.HasBalance() {
			candidates = append(candidates, inst)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ao, bo := a.IsOverdue(today), b.IsOverdue(today); ao != bo {
			return ao
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if ac, bc := purchaseCreated[a.PurchaseID], purchaseCreated[b.PurchaseID]; !ac.Equal(bc) {
			return ac.Before(bc)
		}
		if a.SequenceNumber != b.SequenceNumber {
			return a.SequenceNumber < b.SequenceNumber
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	return candidates[0]
}
