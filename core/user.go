package core

import "fmt"

// User produces stochastic click outcomes. Its propensity is fixed at
// creation and never exposed.
type User struct {
	id         UserID
	propensity float64
}

// NewUser creates a user with a known propensity.
func NewUser(id UserID, propensity float64) (*User, error) {
	if propensity < 0 || propensity > 1 {
		return nil, fmt.Errorf("user %d propensity %.6f: %w", id, propensity, ErrInvalidPropensity)
	}
	return &User{id: id, propensity: propensity}, nil
}

// NewPopulation creates n users with IDs 0..n-1 and propensities drawn
// uniformly from [0, 1), one Float64 draw per user in ID order.
func NewPopulation(n int, randSource RandSource) ([]*User, error) {
	if n <= 0 {
		return nil, fmt.Errorf("population size %d: %w", n, ErrNoUsers)
	}
	if randSource == nil {
		randSource = defaultRandSource
	}

	users := make([]*User, n)
	for i := range users {
		users[i] = &User{id: UserID(i), propensity: randSource.Float64()}
	}
	return users, nil
}

func (u *User) ID() UserID {
	return u.id
}

// ShowAd runs one impression: a fresh draw at or below the propensity is a click.
func (u *User) ShowAd(randSource RandSource) bool {
	return randSource.Float64() <= u.propensity
}

func (u *User) String() string {
	return fmt.Sprintf("u%d", u.id)
}
