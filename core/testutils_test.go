package core

import (
	"fmt"
	"testing"

	"github.com/peterldowns/testy/assert"
)

// mockRandSource provides a deterministic random source for testing and
// records the order of draws.
type mockRandSource struct {
	ints   []int
	floats []float64
	calls  []string
}

func (m *mockRandSource) Intn(n int) int {
	m.calls = append(m.calls, fmt.Sprintf("Intn(%d)", n))
	if len(m.ints) == 0 {
		return 0
	}
	val := m.ints[0] % n
	m.ints = m.ints[1:]
	return val
}

func (m *mockRandSource) Float64() float64 {
	m.calls = append(m.calls, "Float64")
	if len(m.floats) == 0 {
		return 0
	}
	val := m.floats[0]
	m.floats = m.floats[1:]
	return val
}

// scriptedBidder bids from a per-round script, repeating the last entry
// once the script runs out.
type scriptedBidder struct {
	name          string
	script        []*float64
	bidErr        error
	notifyErr     error
	users         []UserID
	notifications []Notification
}

func (b *scriptedBidder) Bid(user UserID) (*float64, error) {
	if b.bidErr != nil {
		return nil, b.bidErr
	}
	b.users = append(b.users, user)
	if len(b.script) == 0 {
		return nil, nil
	}
	i := len(b.users) - 1
	if i >= len(b.script) {
		i = len(b.script) - 1
	}
	return b.script[i], nil
}

func (b *scriptedBidder) Notify(n Notification) error {
	if b.notifyErr != nil {
		return b.notifyErr
	}
	b.notifications = append(b.notifications, n)
	return nil
}

func (b *scriptedBidder) String() string {
	return b.name
}

func fixed(name string, price float64) *scriptedBidder {
	return &scriptedBidder{name: name, script: []*float64{bidPtr(price)}}
}

func bidPtr(v float64) *float64 {
	return &v
}

func mustUser(t *testing.T, id UserID, propensity float64) *User {
	t.Helper()
	user, err := NewUser(id, propensity)
	assert.NoError(t, err)
	return user
}
