package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/contacts-api/datastores"
)

type Contacts struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

type ContactModel struct {
	ID    ds.ContactID `json:"id"    example:"12" readOnly:"true"`
	Name  string       `json:"name"  example:"john smith"`
	Phone string       `json:"phone" example:"555-0100"`
	Email string       `json:"email" example:"john@example.com"`
}

func newContactModel(c *ds.Contact) ContactModel {
	return ContactModel{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
}

// ContactInput is the body accepted on creation. Contents are not validated.
type ContactInput struct {
	_     struct{} `json:"-" additionalProperties:"true"`
	Name  string   `json:"name"  example:"john smith"`
	Phone string   `json:"phone" example:"555-0100"`
	Email string   `json:"email" example:"john@example.com"`
}

func (h *Contacts) RegisterCreate(api huma.API) { // called by [huma.AutoRegister]
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create a contact",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, handlerWithErrorHandler(h.create, h.ErrorHandler))
}

type ContactsCreateOutput struct {
	Body ContactModel
}

func (h *Contacts) create(ctx context.Context, input *struct {
	Body ContactInput
}) (*ContactsCreateOutput, error) {
	contact := &ds.Contact{
		Name:  input.Body.Name,
		Phone: input.Body.Phone,
		Email: input.Body.Email,
	}
	_, err := h.Store.Create(ctx, contact)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsCreateOutput{Body: newContactModel(contact)}, nil
}

func (h *Contacts) RegisterList(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/contacts",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsListOutput struct {
	Body []ContactModel
}

func (h *Contacts) list(ctx context.Context, _ *struct{}) (*ContactsListOutput, error) {
	contacts, err := h.Store.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, contact := range contacts {
		body = append(body, newContactModel(contact))
	}

	return &ContactsListOutput{Body: body}, nil
}

func (h *Contacts) RegisterGet(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/contacts/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

// ContactLookup is a contact that encodes as {} when absent.
type ContactLookup struct {
	*ContactModel
}

type ContactsGetOutput struct {
	Body ContactLookup
}

func (h *Contacts) get(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"12" doc:"ID of the contact to get"`
}) (*ContactsGetOutput, error) {
	contact, err := h.Store.Get(ctx, input.ID)
	switch {
	case err == nil:
		model := newContactModel(contact)
		return &ContactsGetOutput{Body: ContactLookup{&model}}, nil

	case errors.Is(err, ds.ErrObjectNotFound):
		return &ContactsGetOutput{}, nil

	default:
		return nil, storeError(err)
	}
}

func (h *Contacts) RegisterDel(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/contacts/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsDelOutput struct {
	Body struct {
		Deleted ds.ContactID `json:"deleted" example:"12"`
	}
}

func (h *Contacts) del(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"12" doc:"ID of the contact to delete"`
}) (*ContactsDelOutput, error) {
	err := h.Store.Delete(ctx, input.ID)
	if err != nil {
		return nil, storeError(err)
	}
	out := &ContactsDelOutput{}
	out.Body.Deleted = input.ID
	return out, nil
}
