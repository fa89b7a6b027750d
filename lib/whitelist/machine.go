// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/mcwhitelist/lib/identity"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

// Store is the record store the machine reads and writes. *store.File
// implements it.
type Store interface {
	Load(ctx context.Context) (store.Snapshot, error)
	Update(ctx context.Context, fn func(store.Snapshot) error) error
}

// Resolver looks up game accounts. *identity.Client implements it.
type Resolver interface {
	ResolveByName(ctx context.Context, name string) (identity.Profile, error)
	ResolveByID(ctx context.Context, accountID string) (string, error)
	NameHistory(ctx context.Context, accountID string) ([]identity.NameChange, error)
}

// Config configures a Machine.
type Config struct {
	// StaffRoom receives request and removal cards.
	StaffRoom ref.RoomID

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Machine applies whitelist transitions. It holds no record state of
// its own; every operation is one load-modify-save cycle on the store.
type Machine struct {
	store     Store
	resolver  Resolver
	staffRoom ref.RoomID
	logger    *slog.Logger
}

// New returns a Machine.
func New(records Store, resolver Resolver, config Config) (*Machine, error) {
	if records == nil {
		return nil, errors.New("whitelist: store is required")
	}
	if resolver == nil {
		return nil, errors.New("whitelist: resolver is required")
	}
	if config.StaffRoom.IsZero() {
		return nil, errors.New("whitelist: StaffRoom is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:     records,
		resolver:  resolver,
		staffRoom: config.StaffRoom,
		logger:    logger,
	}, nil
}

// Transition is the outcome of a successful operation.
type Transition struct {
	Owner ref.UserID

	// Record is the record after the operation. Zero when Removed.
	Record store.Record

	// Previous is the record before the operation, nil if there was
	// none.
	Previous *store.Record

	// Removed is set when the operation deleted the record.
	Removed bool

	// CanonicalName is the game username with its canonical
	// capitalisation, or the account id if it could not be resolved.
	CanonicalName string

	Intents []Intent
}

// SubmitRequest files a pending whitelist request for owner.
func (m *Machine) SubmitRequest(ctx context.Context, owner ref.UserID, rawName string) (*Transition, error) {
	transition, err := m.create(ctx, owner, rawName)
	if err != nil {
		return nil, err
	}
	m.logger.Info("whitelist request submitted",
		"owner", owner,
		"account_id", transition.Record.AccountID,
		"name", transition.CanonicalName,
	)
	return transition, nil
}

// AdminForceAdd files a request on owner's behalf. Validation and
// duplicate checks match SubmitRequest; the owner is additionally told
// who added which account.
func (m *Machine) AdminForceAdd(ctx context.Context, actor, owner ref.UserID, rawName string) (*Transition, error) {
	transition, err := m.create(ctx, owner, rawName)
	if err != nil {
		return nil, err
	}
	transition.Intents = append(transition.Intents, Intent{
		Kind:      IntentForcedAdd,
		Member:    owner,
		Title:     transition.CanonicalName,
		AccountID: transition.Record.AccountID,
		Actor:     actor,
	})
	m.logger.Info("whitelist request added by staff",
		"owner", owner,
		"actor", actor,
		"account_id", transition.Record.AccountID,
		"name", transition.CanonicalName,
	)
	return transition, nil
}

func (m *Machine) create(ctx context.Context, owner ref.UserID, rawName string) (*Transition, error) {
	name := strings.TrimSpace(rawName)
	if !identity.ValidName(name) {
		return nil, ErrInvalidName
	}

	snapshot, err := m.store.Load(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if err := duplicateError(snapshot, owner); err != nil {
		return nil, err
	}

	profile, err := m.resolver.ResolveByName(ctx, name)
	if err != nil {
		return nil, resolverError(err)
	}

	record := store.Record{Owner: owner, AccountID: profile.ID}
	err = m.store.Update(ctx, func(snapshot store.Snapshot) error {
		// Another writer may have filed while the resolver ran.
		if err := duplicateError(snapshot, owner); err != nil {
			return err
		}
		snapshot[owner] = record
		return nil
	})
	if err != nil {
		if IsDomainError(err) {
			return nil, err
		}
		return nil, storageError(err)
	}

	return &Transition{
		Owner:         owner,
		Record:        record,
		CanonicalName: profile.Name,
		Intents: []Intent{
			{
				Kind:      IntentWhitelistRequest,
				Room:      m.staffRoom,
				Member:    owner,
				Title:     profile.Name,
				AccountID: profile.ID,
			},
			{
				Kind:      IntentSetDisplayName,
				Member:    owner,
				Title:     profile.Name,
				AccountID: profile.ID,
			},
		},
	}, nil
}

func duplicateError(snapshot store.Snapshot, owner ref.UserID) error {
	existing, ok := snapshot[owner]
	switch {
	case !ok:
		return nil
	case existing.Approved:
		return ErrAlreadyApproved
	default:
		return ErrAlreadyPending
	}
}

// WithdrawRequest removes owner's own record. Staff are only asked to
// act when the record had been approved.
func (m *Machine) WithdrawRequest(ctx context.Context, owner ref.UserID) (*Transition, error) {
	transition, err := m.remove(ctx, owner, ErrNotWhitelisted)
	if err != nil {
		return nil, err
	}
	m.logger.Info("whitelist request withdrawn",
		"owner", owner,
		"account_id", transition.Previous.AccountID,
		"was_approved", transition.Previous.Approved,
	)
	return transition, nil
}

// AdminRemove deletes owner's record on staff instruction.
func (m *Machine) AdminRemove(ctx context.Context, owner ref.UserID) (*Transition, error) {
	transition, err := m.remove(ctx, owner, ErrNotInSystem)
	if err != nil {
		return nil, err
	}
	m.logger.Info("whitelist record removed by staff",
		"owner", owner,
		"account_id", transition.Previous.AccountID,
		"was_approved", transition.Previous.Approved,
	)
	return transition, nil
}

// RemoveOnDeparture deletes owner's record after they left the
// community. An absent record is not an error: the returned transition
// has Removed false and no intents.
func (m *Machine) RemoveOnDeparture(ctx context.Context, owner ref.UserID) (*Transition, error) {
	transition, err := m.remove(ctx, owner, nil)
	if err != nil {
		return nil, err
	}
	if transition.Removed {
		m.logger.Info("whitelist record removed on departure",
			"owner", owner,
			"account_id", transition.Previous.AccountID,
			"was_approved", transition.Previous.Approved,
		)
	}
	return transition, nil
}

// remove deletes owner's record. absent is returned when there is no
// record; a nil absent makes that a no-op.
func (m *Machine) remove(ctx context.Context, owner ref.UserID, absent error) (*Transition, error) {
	var (
		previous store.Record
		found    bool
	)
	err := m.store.Update(ctx, func(snapshot store.Snapshot) error {
		previous, found = snapshot[owner]
		if !found {
			if absent != nil {
				return absent
			}
			return nil
		}
		delete(snapshot, owner)
		return nil
	})
	if err != nil {
		if absent != nil && errors.Is(err, absent) {
			return nil, err
		}
		return nil, storageError(err)
	}

	transition := &Transition{Owner: owner}
	if !found {
		return transition, nil
	}
	transition.Previous = &previous
	transition.Removed = true

	if previous.Approved {
		title := m.displayName(ctx, previous.AccountID)
		transition.CanonicalName = title
		transition.Intents = append(transition.Intents, Intent{
			Kind:      IntentUnwhitelistRequest,
			Room:      m.staffRoom,
			Member:    owner,
			Title:     title,
			AccountID: previous.AccountID,
		})
	}
	return transition, nil
}

// displayName resolves the account's current name for a card title,
// falling back to the account id. A notification detail never blocks a
// removal that has already been persisted.
func (m *Machine) displayName(ctx context.Context, accountID string) string {
	name, err := m.resolver.ResolveByID(ctx, accountID)
	if err != nil {
		m.logger.Warn("could not resolve account name for staff card",
			"account_id", accountID,
			"error", err,
		)
		return accountID
	}
	return name
}

// SetStatus records a staff decision on owner's request and asks for
// the owner to be told.
func (m *Machine) SetStatus(ctx context.Context, owner ref.UserID, approved bool) (*Transition, error) {
	var previous, updated store.Record
	err := m.store.Update(ctx, func(snapshot store.Snapshot) error {
		record, ok := snapshot[owner]
		if !ok {
			return ErrNotInSystem
		}
		previous = record
		record.Approved = approved
		snapshot[owner] = record
		updated = record
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotInSystem) {
			return nil, err
		}
		return nil, storageError(err)
	}

	m.logger.Info("whitelist status set",
		"owner", owner,
		"account_id", updated.AccountID,
		"approved", approved,
		"was_approved", previous.Approved,
	)
	return &Transition{
		Owner:    owner,
		Record:   updated,
		Previous: &previous,
		Intents: []Intent{{
			Kind:      IntentStatusChanged,
			Member:    owner,
			AccountID: updated.AccountID,
			Approved:  approved,
		}},
	}, nil
}

// Stats counts records by state.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
}

// Total is the number of records.
func (s Stats) Total() int { return s.Pending + s.Approved }

// Stats reads the store and counts records.
func (m *Machine) Stats(ctx context.Context) (Stats, error) {
	snapshot, err := m.store.Load(ctx)
	if err != nil {
		return Stats{}, storageError(err)
	}
	return CountRecords(snapshot), nil
}

// CountRecords counts snapshot's records by state.
func CountRecords(snapshot store.Snapshot) Stats {
	var stats Stats
	for _, record := range snapshot {
		if record.Approved {
			stats.Approved++
		} else {
			stats.Pending++
		}
	}
	return stats
}
