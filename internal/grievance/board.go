package grievance

import "sync"

// Board is the admin dashboard state for one session.
type Board struct {
	mu       sync.Mutex
	pending  []Grievance
	all      []Grievance
	officers []Officer
}

type BoardView struct {
	Pending  []Grievance `json:"pendingAssignments"`
	All      []Grievance `json:"allComplaints"`
	Officers []Officer   `json:"officers"`
}

func NewBoard(pending, all []Grievance, officers []Officer) *Board {
	return &Board{
		pending:  append([]Grievance(nil), pending...),
		all:      append([]Grievance(nil), all...),
		officers: append([]Officer(nil), officers...),
	}
}

// Assign records an assignment the API already accepted: the grievance
// leaves the pending list and is marked assigned in the full list.
func (b *Board) Assign(grievanceID, officerName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.pending[:0]
	for _, g := range b.pending {
		if g.GrievanceID != grievanceID {
			kept = append(kept, g)
		}
	}
	b.pending = kept

	for i := range b.all {
		if b.all[i].GrievanceID == grievanceID {
			b.all[i].Status = StatusAssigned
			b.all[i].AssignedOfficerName = officerName
		}
	}
}

func (b *Board) View() BoardView {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BoardView{
		Pending:  append([]Grievance{}, b.pending...),
		All:      append([]Grievance{}, b.all...),
		Officers: append([]Officer{}, b.officers...),
	}
}
