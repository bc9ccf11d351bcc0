package command

import "log/slog"

func logOAuthSuccess(accountName string) {
	slog.Info("oauth login completed", "account", accountName)
}

func logOAuthFailure(err error) {
	slog.Error("oauth login failed", "error", err)
}
