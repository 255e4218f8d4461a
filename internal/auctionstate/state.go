// Package auctionstate maps an auction's time window and lifecycle events to
// its status. It performs no I/O.
package auctionstate

import (
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// edges lists every allowed status change; anything else is rejected
var edges = map[models.AuctionStatus][]models.AuctionStatus{
	models.StatusUpcoming: {models.StatusActive, models.StatusCancelled},
	models.StatusActive:   {models.StatusEnded, models.StatusCancelled},
	models.StatusEnded:    {models.StatusSold},
}

// CanTransition reports whether from -> to is an allowed edge
func CanTransition(from, to models.AuctionStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns a TransitionError when the edge does not exist
func Transition(from, to models.AuctionStatus) error {
	if !CanTransition(from, to) {
		return &biddingerrors.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// AcceptsBids reports whether a BidEntry may be appended in status s
func AcceptsBids(s models.AuctionStatus) bool {
	return s == models.StatusActive
}

// IsFinal reports whether no further time-driven change can happen in status s
func IsFinal(s models.AuctionStatus) bool {
	switch s {
	case models.StatusEnded, models.StatusSold, models.StatusCancelled:
		return true
	}
	return false
}

// Due returns the time-driven statuses an auction has to pass through, in
// order, for its window [start, end) evaluated at now. It depends only on
// now, so evaluating the same instant twice yields the same result once the
// first result has been applied.
func Due(status models.AuctionStatus, start, end, now time.Time) []models.AuctionStatus {
	var due []models.AuctionStatus
	if status == models.StatusUpcoming && !now.Before(start) {
		due = append(due, models.StatusActive)
		status = models.StatusActive
	}
	if status == models.StatusActive && !end.IsZero() && !now.Before(end) {
		due = append(due, models.StatusEnded)
	}
	return due
}
