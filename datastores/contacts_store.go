package datastores

import (
	"context"
)

type (
	ContactID = string
	Contact   struct {
		ID    ContactID
		Name  string
		Phone string
		Email string
	}
)

type ContactsStore interface {
	Create(context.Context, *Contact) (ContactID, error)
	List(context.Context) ([]*Contact, error)
	Get(context.Context, ContactID) (*Contact, error)
	Delete(context.Context, ContactID) error
}
