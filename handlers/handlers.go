package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type handler[I, O any] = func(context.Context, *I) (*O, error)

func handlerWithErrorHandler[I, O any](handler handler[I, O], do func(context.Context, error)) handler[I, O] {
	if do == nil {
		return handler
	}

	return func(ctx context.Context, i *I) (*O, error) {
		o, err := handler(ctx, i)
		if err != nil {
			do(ctx, err)
		}
		return o, err
	}
}

func opErrors(codes ...int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.Errors = codes }
}

// ErrorModel is the body written when a store operation fails.
// The message of the underlying error is exposed as is.
type ErrorModel struct {
	Status  int    `json:"-"`
	Message string `json:"error" example:"dynamodb: get item: operation error"`
	err     error
}

var _ huma.StatusError = (*ErrorModel)(nil)

func storeError(err error) *ErrorModel {
	return &ErrorModel{Status: http.StatusInternalServerError, Message: err.Error(), err: err}
}

func (e *ErrorModel) Error() string  { return e.Message }
func (e *ErrorModel) GetStatus() int { return e.Status }
func (e *ErrorModel) Unwrap() error  { return e.err }
