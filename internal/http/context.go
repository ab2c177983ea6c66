package http

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const stateKey ctxKey = iota

func withState(ctx context.Context, st *app.State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

func stateFrom(ctx context.Context) *app.State {
	st, _ := ctx.Value(stateKey).(*app.State)
	return st
}

func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
