// Package domain contains core concepts of the messaging system.
// This file defines the Conversation aggregate and its participant pair.
package domain

import (
	"strings"

	"duochat/errors"
)

// ParticipantPair is the unordered two-element set of user ids identifying
// a conversation. The pair is stored in canonical (sorted) order so that
// {a,b} and {b,a} always produce the same key.
type ParticipantPair struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// NewParticipantPair canonicalizes two distinct user ids.
func NewParticipantPair(a, b string) (ParticipantPair, error) {
	if a == b {
		return ParticipantPair{}, errors.ErrInvalidRecipient
	}
	if a > b {
		a, b = b, a
	}
	return ParticipantPair{Low: a, High: b}, nil
}

// Key returns the deterministic storage key for the pair.
// Exact-set match only: {a,b} never matches a lookup for {a,c}.
func (p ParticipantPair) Key() string {
	return p.Low + "|" + p.High
}

// Contains reports whether the given user id is one of the two participants.
func (p ParticipantPair) Contains(userID string) bool {
	return p.Low == userID || p.High == userID
}

// Other returns the counterpart of the given participant.
func (p ParticipantPair) Other(userID string) string {
	if p.Low == userID {
		return p.High
	}
	return p.Low
}

func (p ParticipantPair) String() string {
	return "{" + strings.Join([]string{p.Low, p.High}, ",") + "}"
}

// Conversation is the unique aggregate of all messages ever exchanged
// between one unordered pair of users. It is created lazily on the first
// message and mutated only by appending; conversations are never deleted
// or merged.
type Conversation struct {
	ID           string          `json:"id"`
	Participants ParticipantPair `json:"participants"`
	Messages     []Message       `json:"messages"`
}
