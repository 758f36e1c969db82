package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxBankID
	ctxTokenID
)

var ErrNoIdentity = errors.New("auth: identity not in context")

func WithIdentity(ctx context.Context, userID, bankID string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxBankID, bankID)
	return ctx
}

func withTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, ctxTokenID, jti)
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoIdentity
}

// BankID returns the tenant the token was issued for. Platform-level users may have none.
func BankID(ctx context.Context) string {
	s, _ := ctx.Value(ctxBankID).(string)
	return s
}

func TokenID(ctx context.Context) string {
	s, _ := ctx.Value(ctxTokenID).(string)
	return s
}
