package datastores

import (
	"context"
)

// ContactsKV implements [ContactsStore] on top of a [KV].
//
// Ids that do not look like issued ids are absent by construction: they are
// never looked up, deleted or listed, which keeps the counter record out of
// reach of the contact operations.
type ContactsKV struct {
	kv  KV
	seq *Sequence
}

var _ ContactsStore = (*ContactsKV)(nil)

func NewContactsKV(kv KV) *ContactsKV {
	return &ContactsKV{kv: kv, seq: &Sequence{KV: kv, Key: CounterKey}}
}

func (s *ContactsKV) Create(ctx context.Context, c *Contact) (ContactID, error) {
	id, err := s.seq.NextID(ctx)
	if err != nil {
		return "", err
	}
	c.ID = id
	// a failed put leaves a gap in the sequence
	err = s.kv.Put(ctx, id, toItem(c))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *ContactsKV) List(ctx context.Context) ([]*Contact, error) {
	items, err := s.kv.Scan(ctx, s.seq.Key)
	if err != nil {
		return nil, err
	}
	contacts := make([]*Contact, 0, len(items))
	for _, item := range items {
		if isIssuedID(item["id"]) {
			contacts = append(contacts, fromItem(item))
		}
	}
	return contacts, nil
}

func (s *ContactsKV) Get(ctx context.Context, id ContactID) (*Contact, error) {
	if !isIssuedID(id) {
		return nil, ErrObjectNotFound
	}
	item, err := s.kv.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromItem(item), nil
}

func (s *ContactsKV) Delete(ctx context.Context, id ContactID) error {
	if !isIssuedID(id) {
		return nil
	}
	return s.kv.Delete(ctx, id)
}

func toItem(c *Contact) Item {
	return Item{
		"id":    c.ID,
		"name":  c.Name,
		"phone": c.Phone,
		"email": c.Email,
	}
}

func fromItem(item Item) *Contact {
	return &Contact{
		ID:    item["id"],
		Name:  item["name"],
		Phone: item["phone"],
		Email: item["email"],
	}
}
