package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Payload is an opaque JSON document returned by the weather provider.
// It is stored as text and passed through to clients unchanged.
type Payload []byte

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return errors.New("domain.Payload: UnmarshalJSON on nil pointer")
	}
	*p = append((*p)[0:0], data...)
	return nil
}

func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case string:
		*p = Payload(v)
	case []byte:
		*p = append(Payload(nil), v...)
	default:
		return fmt.Errorf("domain.Payload: cannot scan %T", src)
	}
	return nil
}

// Valid reports whether the payload is a well-formed JSON document.
func (p Payload) Valid() bool {
	return len(p) > 0 && json.Valid(p)
}

// WeatherQuery is one history row: a successful lookup attributed to a user.
type WeatherQuery struct {
	ID        int64     `json:"id" db:"id"`
	City      string    `json:"city" db:"city"`
	Result    Payload   `json:"result" db:"result"`
	UserID    int64     `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WeatherQueryWithUser is the admin projection joining the owning account.
type WeatherQueryWithUser struct {
	WeatherQuery
	User UserSummary `json:"user" db:"user"`
}
