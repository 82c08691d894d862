package services

import (
	"encoding/base64"
	"strings"
	"time"
)

type CursorKind string

const (
	CursorKindContest  CursorKind = "contest"
	CursorKindActivity CursorKind = "activity"
	CursorKindCreator  CursorKind = "creator"
)

// cursorSeparator is the ASCII unit separator, it can't appear in a
// RFC3339 timestamp and is rejected in tie breakers.
const cursorSeparator = "\x1f"

// CursorKey is the decoded position of a keyset cursor.
type CursorKey struct {
	Kind       CursorKind
	SortKey    time.Time
	TieBreaker string
}

func (k CursorKind) valid() bool {
	switch k {
	case CursorKindContest, CursorKindActivity, CursorKindCreator:
		return true
	}
	return false
}

// EncodeCursor builds an opaque cursor token for the given position.
func EncodeCursor(kind CursorKind, sortKey time.Time, tieBreaker string) (string, error) {
	if !kind.valid() {
		return "", newInputInvalid("unknown cursor kind %q", kind)
	}
	if tieBreaker == "" || strings.Contains(tieBreaker, cursorSeparator) {
		return "", newInputInvalid("invalid cursor tie breaker")
	}

	payload := strings.Join([]string{
		string(kind),
		sortKey.UTC().Format(time.RFC3339Nano),
		tieBreaker,
	}, cursorSeparator)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)), nil
}

// DecodeCursor parses a token produced by EncodeCursor. Tokens of another
// kind or any malformed token fail with ErrInputInvalid.
func DecodeCursor(kind CursorKind, token string) (*CursorKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return nil, newInputInvalid("cursor is not valid base64url")
	}

	fields := strings.Split(string(raw), cursorSeparator)
	if len(fields) != 3 {
		return nil, newInputInvalid("malformed cursor")
	}
	if CursorKind(fields[0]) != kind {
		return nil, newInputInvalid("cursor of kind %q can't be used for %q queries", fields[0], kind)
	}

	sortKey, err := time.Parse(time.RFC3339Nano, fields[1])
	if err != nil {
		return nil, newInputInvalid("cursor has an invalid sort key")
	}
	if fields[2] == "" {
		return nil, newInputInvalid("cursor has an empty tie breaker")
	}

	return &CursorKey{
		Kind:       kind,
		SortKey:    sortKey.UTC(),
		TieBreaker: fields[2],
	}, nil
}

func encodeNextCursor(kind CursorKind, sortKey time.Time, tieBreaker string) (*string, error) {
	token, err := EncodeCursor(kind, sortKey, tieBreaker)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
