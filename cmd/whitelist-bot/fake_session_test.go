// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

type sentMessage struct {
	Room    ref.RoomID
	Content messaging.MessageContent
}

// fakeSession is an in-memory homeserver as seen by one user. State
// writes to another user's member event fail with M_FORBIDDEN, as on a
// real homeserver.
type fakeSession struct {
	mu sync.Mutex

	user        ref.UserID
	state       map[string]json.RawMessage
	accountData map[string]json.RawMessage
	sent        []sentMessage
	created     []messaging.CreateRoomRequest
	joined      []ref.RoomID
	stateWrites []string
	roomCounter int

	createErr error
	sendErr   map[ref.RoomID]error
}

func newFakeSession(user ref.UserID) *fakeSession {
	return &fakeSession{
		user:        user,
		state:       make(map[string]json.RawMessage),
		accountData: make(map[string]json.RawMessage),
		sendErr:     make(map[ref.RoomID]error),
	}
}

func stateKey(room ref.RoomID, eventType, key string) string {
	return room.String() + "|" + eventType + "|" + key
}

func (s *fakeSession) setState(room ref.RoomID, eventType, key string, content any) {
	data, err := json.Marshal(content)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[stateKey(room, eventType, key)] = data
}

func (s *fakeSession) join(room ref.RoomID, users ...ref.UserID) {
	for _, user := range users {
		s.setState(room, messaging.EventTypeMember, user.String(), messaging.MemberContent{Membership: messaging.MembershipJoin})
	}
}

func (s *fakeSession) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func (s *fakeSession) messagesIn(room ref.RoomID) []sentMessage {
	var matched []sentMessage
	for _, message := range s.messages() {
		if message.Room == room {
			matched = append(matched, message)
		}
	}
	return matched
}

func notFound() error {
	return &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "not found", StatusCode: http.StatusNotFound}
}

func (s *fakeSession) UserID() ref.UserID { return s.user }

func (s *fakeSession) WhoAmI(context.Context) (ref.UserID, error) { return s.user, nil }

func (s *fakeSession) Sync(context.Context, messaging.SyncOptions) (*messaging.SyncResponse, error) {
	return nil, fmt.Errorf("fakeSession: Sync not scripted")
}

func (s *fakeSession) JoinRoom(_ context.Context, room ref.RoomID) (ref.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = append(s.joined, room)
	return room, nil
}

func (s *fakeSession) CreateRoom(_ context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, request)
	s.roomCounter++
	return &messaging.CreateRoomResponse{RoomID: ref.MustParseRoomID(fmt.Sprintf("!dm%d:example.org", s.roomCounter))}, nil
}

func (s *fakeSession) SendMessage(_ context.Context, room ref.RoomID, content messaging.MessageContent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sendErr[room]; err != nil {
		return "", err
	}
	s.sent = append(s.sent, sentMessage{Room: room, Content: content})
	return fmt.Sprintf("$sent%d", len(s.sent)), nil
}

func (s *fakeSession) GetStateEvent(_ context.Context, room ref.RoomID, eventType, key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.state[stateKey(room, eventType, key)]
	if !ok {
		return nil, notFound()
	}
	return data, nil
}

func (s *fakeSession) SendStateEvent(_ context.Context, room ref.RoomID, eventType, key string, content any) (string, error) {
	s.mu.Lock()
	s.stateWrites = append(s.stateWrites, stateKey(room, eventType, key))
	s.mu.Unlock()
	if eventType == messaging.EventTypeMember && key != s.user.String() {
		return "", &messaging.MatrixError{Code: messaging.ErrCodeForbidden, Message: "cannot set another user's member event", StatusCode: http.StatusForbidden}
	}
	s.setState(room, eventType, key, content)
	return "$state", nil
}

func (s *fakeSession) GetAccountData(_ context.Context, dataType string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.accountData[dataType]
	if !ok {
		return nil, notFound()
	}
	return data, nil
}

func (s *fakeSession) SetAccountData(_ context.Context, dataType string, content any) error {
	data, err := json.Marshal(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountData[dataType] = data
	return nil
}

var _ messaging.Session = (*fakeSession)(nil)
