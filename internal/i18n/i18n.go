// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package i18n holds the message catalogue for every user-facing reply and
// the verification email. The bot currently ships English only, but all
// texts go through the bundle so adding locales stays a data change.
package i18n

import (
	"embed"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var bundle *i18n.Bundle
var localizer *i18n.Localizer

// Init loads the embedded translations. Must run before any T/TData call.
func Init() error {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	if _, err := bundle.LoadMessageFileFS(translationFS, "translations/active.en.toml"); err != nil {
		return err
	}

	localizer = i18n.NewLocalizer(bundle, "en")
	return nil
}

// T translates a message by ID.
func T(messageID string) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// TData translates a message with template data.
func TData(messageID string, data map[string]any) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
