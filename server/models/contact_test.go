package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, email string) *User {
	t.Helper()

	user := &User{
		FirstName:   "tony",
		LastName:    "stark",
		Email:       email,
		Password:    "very-secure",
		PhoneNumber: fmt.Sprintf("+1234567%04d", len(email)),
	}
	require.NoError(t, CreateUser(user))
	return user
}

func TestFirstContactBecomesPrimary(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")

	contact := &Contact{Name: "pepper potts", PhoneNumber: "+12345678901", Relationship: "partner"}
	require.NoError(t, CreateContact(user.ID, contact))

	assert.True(t, contact.IsPrimary, "first contact is promoted to primary")

	primary, err := PrimaryContact(user.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, primary.ID)
}

func TestNewPrimaryDemotesOldPrimary(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")

	first := &Contact{Name: "pepper potts", PhoneNumber: "+12345678901"}
	require.NoError(t, CreateContact(user.ID, first))

	second := &Contact{Name: "happy hogan", PhoneNumber: "+12345678902", IsPrimary: true}
	require.NoError(t, CreateContact(user.ID, second))

	contacts, err := FetchContacts(user.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	primaryCount := 0
	for _, c := range contacts {
		if c.IsPrimary {
			primaryCount++
			assert.Equal(t, second.ID, c.ID)
		}
	}
	assert.Equal(t, 1, primaryCount, "exactly one primary at all times")
}

func TestDeletingPrimaryPromotesOldestRemaining(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")

	first := &Contact{Name: "pepper potts", PhoneNumber: "+12345678901"}
	second := &Contact{Name: "happy hogan", PhoneNumber: "+12345678902"}
	third := &Contact{Name: "james rhodes", PhoneNumber: "+12345678903"}
	require.NoError(t, CreateContact(user.ID, first))
	require.NoError(t, CreateContact(user.ID, second))
	require.NoError(t, CreateContact(user.ID, third))

	require.NoError(t, DeleteContact(user.ID, first.ID))

	primary, err := PrimaryContact(user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID, "oldest remaining contact becomes primary")
}

func TestDeletingLastContactLeavesNoPrimary(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")

	only := &Contact{Name: "pepper potts", PhoneNumber: "+12345678901"}
	require.NoError(t, CreateContact(user.ID, only))
	require.NoError(t, DeleteContact(user.ID, only.ID))

	_, err := PrimaryContact(user.ID)
	assert.ErrorIs(t, err, ErrNoPrimaryContact)
}

func TestSetPrimaryContact(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")

	first := &Contact{Name: "pepper potts", PhoneNumber: "+12345678901"}
	second := &Contact{Name: "happy hogan", PhoneNumber: "+12345678902"}
	require.NoError(t, CreateContact(user.ID, first))
	require.NoError(t, CreateContact(user.ID, second))

	require.NoError(t, SetPrimaryContact(user.ID, second.ID))

	primary, err := PrimaryContact(user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)

	contacts, err := FetchContacts(user.ID)
	require.NoError(t, err)
	for _, c := range contacts {
		if c.ID != second.ID {
			assert.False(t, c.IsPrimary)
		}
	}
}

func TestContactsAreScopedToUser(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "stark@avengers.com")
	other := createTestUser(t, "web@avengers.com")

	require.NoError(t, CreateContact(user.ID, &Contact{Name: "pepper potts", PhoneNumber: "+12345678901"}))

	contacts, err := FetchContacts(other.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}
