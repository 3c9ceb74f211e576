package refstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPageToken is returned when a continuation token cannot be decoded.
	ErrInvalidPageToken = errors.New("token is invalid")
)

const (
	// DefaultPageLimit is the default number of items per page.
	DefaultPageLimit = 50
)

// Cursor represents keyset pagination state over reference rows.
type Cursor struct {
	LastRefType     string
	LastReferenceNo string
}

// Encode encodes the cursor into a base64 continuation token.
func (c Cursor) Encode() string {
	key := fmt.Sprintf("%s,%s", c.LastRefType, c.LastReferenceNo)
	return base64.StdEncoding.EncodeToString([]byte(key))
}

// DecodePageToken decodes a base64 continuation token into a Cursor.
func DecodePageToken(encodedToken string) (*Cursor, error) {
	bytes, err := base64.StdEncoding.DecodeString(encodedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 token: %w", err)
	}
	tokenParts := strings.Split(string(bytes), ",")
	expectedTokenParts := 2
	if len(tokenParts) != expectedTokenParts {
		return nil, fmt.Errorf("invalid token format: %w", ErrInvalidPageToken)
	}

	return &Cursor{
		LastRefType:     tokenParts[0],
		LastReferenceNo: tokenParts[1],
	}, nil
}
