// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package whitelist implements the request/approval state machine for
// game server access.
//
// A member's record moves absent → pending → approved. Staff can flip
// approved back to pending, and a record is removed entirely on
// withdrawal, staff removal, or the member leaving the community.
//
// [Machine] operations never talk to the chat platform. Each returns a
// [Transition] describing what changed plus a list of [Intent] values
// (staff cards, direct messages, display name changes) for the caller
// to deliver. Delivery is best-effort and cannot undo a transition.
//
// Expected outcomes (an invalid name, a duplicate request, an unknown
// account) are reported as sentinel errors for the caller to turn into
// user text. Storage failures match [ErrStorage]; nothing is persisted
// when one occurs.
package whitelist
