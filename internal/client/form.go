package client

import (
	"context"
	"strings"
)

// OrderForm models the order form for one story: the child slot is
// always required, the mother slot only when the story calls for a
// second character.
type OrderForm struct {
	story *Story

	ChildName     string
	ChildPhotoURL string
	MomName       string
	MomPhotoURL   string
}

func NewOrderForm(story *Story) *OrderForm {
	return &OrderForm{story: story}
}

// NeedsSecondCharacter reports whether the mother slot is active.
func (f *OrderForm) NeedsSecondCharacter() bool {
	return f.story.RequiresSecondCharacter
}

// CanSubmit reports whether every active slot is filled.
func (f *OrderForm) CanSubmit() bool {
	if strings.TrimSpace(f.ChildName) == "" || f.ChildPhotoURL == "" {
		return false
	}
	if f.NeedsSecondCharacter() {
		if strings.TrimSpace(f.MomName) == "" || f.MomPhotoURL == "" {
			return false
		}
	}
	return true
}

// Params builds the order request. Inactive mother fields are omitted
// even when filled in, so stale values from a story switch never leak
// into the order.
func (f *OrderForm) Params() CreateOrderParams {
	params := CreateOrderParams{
		StoryID:   f.story.ID,
		ChildName: strings.TrimSpace(f.ChildName),
		PhotoURL:  f.ChildPhotoURL,
	}
	if f.NeedsSecondCharacter() {
		params.MomName = strings.TrimSpace(f.MomName)
		params.MomPhotoURL = f.MomPhotoURL
	}
	return params
}

// Submit places the order. On failure the form's state is left intact
// so the user can retry without re-entering anything.
func (f *OrderForm) Submit(ctx context.Context, c *Client) (*Order, error) {
	return c.CreateOrder(ctx, f.Params())
}
