package utils

import "context"

type ctxKey string

const (
	accountIDCtxKey ctxKey = "account-id"
	folderCtxKey    ctxKey = "folder"
)

func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDCtxKey, accountID)
}

func GetAccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(accountIDCtxKey).(string); ok {
		return v
	}
	return ""
}

func WithFolder(ctx context.Context, folder string) context.Context {
	return context.WithValue(ctx, folderCtxKey, folder)
}

func GetFolderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(folderCtxKey).(string); ok {
		return v
	}
	return ""
}
