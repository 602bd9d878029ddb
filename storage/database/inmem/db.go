// Package inmemdb implements the domain repositories in memory, for tests and local runs.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/contact"
	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/notification"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/support"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

var errNotFound = core.NewNotFoundError("")

type rsvpRow struct {
	event.Rsvp
	reminderSentAt time.Time
}

// DB holds every table behind a single lock so that repositories can join tables.
type DB struct {
	sync.RWMutex

	users         map[string]user.User
	parents       map[string]user.ParentProfile
	coaches       map[string]user.CoachProfile
	blockedEmails map[string]user.BlockedEmail
	blocks        map[string]user.Block

	players       map[string]player.Player
	subscriptions map[string]plan.PlayerSubscription

	requests       map[string]contact.Request
	parentRequests map[string]contact.ParentRequest

	coachReviews    map[string]review.CoachReview
	playerReviews   map[string]review.PlayerReview
	disputes        map[string]review.Dispute
	disputeMessages map[string]review.Message
	ratingRequests  map[string]review.RatingRequest

	events map[string]event.Event
	rsvps  map[string]*rsvpRow

	facilities      map[string]directory.Facility
	schools         map[string]directory.School
	facilityReviews map[string]directory.Review
	schoolReviews   map[string]directory.SchoolReview
	lookups         map[string]lookup.Value

	messages      map[string]support.Message
	replies       map[string]support.Reply
	notifications map[string]notification.Notification
}

func Open() *DB {
	return &DB{
		users:           make(map[string]user.User),
		parents:         make(map[string]user.ParentProfile),
		coaches:         make(map[string]user.CoachProfile),
		blockedEmails:   make(map[string]user.BlockedEmail),
		blocks:          make(map[string]user.Block),
		players:         make(map[string]player.Player),
		subscriptions:   make(map[string]plan.PlayerSubscription),
		requests:        make(map[string]contact.Request),
		parentRequests:  make(map[string]contact.ParentRequest),
		coachReviews:    make(map[string]review.CoachReview),
		playerReviews:   make(map[string]review.PlayerReview),
		disputes:        make(map[string]review.Dispute),
		disputeMessages: make(map[string]review.Message),
		ratingRequests:  make(map[string]review.RatingRequest),
		events:          make(map[string]event.Event),
		rsvps:           make(map[string]*rsvpRow),
		facilities:      make(map[string]directory.Facility),
		schools:         make(map[string]directory.School),
		facilityReviews: make(map[string]directory.Review),
		schoolReviews:   make(map[string]directory.SchoolReview),
		lookups:         make(map[string]lookup.Value),
		messages:        make(map[string]support.Message),
		replies:         make(map[string]support.Reply),
		notifications:   make(map[string]notification.Notification),
	}
}

type transactor struct{}

var _ core.Transactor = transactor{}

// NewTransactor returns a Transactor running fn directly, with a nil executor.
// Writes made before an error are not rolled back.
func NewTransactor() core.Transactor { return transactor{} }

func (transactor) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

func newID() string { return uuid.New().String() }

// contains reports whether sub is in s, ignoring case.
func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inSlice(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// newestFirst sorts s by the time returned by at, newest first.
func newestFirst[T any](s []T, at func(T) time.Time) {
	sort.SliceStable(s, func(i, j int) bool { return at(s[i]).After(at(s[j])) })
}

func oldestFirst[T any](s []T, at func(T) time.Time) {
	sort.SliceStable(s, func(i, j int) bool { return at(s[i]).Before(at(s[j])) })
}

// page applies limit (when positive) and offset to s.
func page[T any](s []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(s) {
			return s[:0]
		}
		s = s[offset:]
	}
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}
