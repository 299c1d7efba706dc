// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n holds every user-visible ProcuBot string in English and
// Traditional Chinese (Taiwan).
//
// Strings live in an x/text message catalog keyed by the Key constants.
// Callers pass the language explicitly; there is no process-wide current
// language.
//
//	p := i18n.Printer(i18n.Parse("zh-TW"))
//	fmt.Println(p.Sprintf(i18n.KeyGreeting))
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/jeranaias/procubot-tui/internal/classify"
)

// Supported languages.
var (
	English            = language.English
	TraditionalChinese = language.MustParse("zh-Hant-TW")
)

var (
	supported = []language.Tag{English, TraditionalChinese}
	matcher   = language.NewMatcher(supported)
	cat       = buildCatalog()
)

// Parse resolves a user-supplied language code ("en", "zh-TW", "zh_Hant")
// to a supported tag. Unknown or malformed codes resolve to English.
func Parse(code string) language.Tag {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return English
	}
	tag, err := language.Parse(code)
	if err != nil {
		return English
	}
	// Traditional Chinese is the only Chinese variant we carry.
	if base, _ := tag.Base(); base.String() == "zh" {
		return TraditionalChinese
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return English
	}
	return supported[idx]
}

// Code returns the short code used in config files: "en" or "zh-TW".
func Code(tag language.Tag) string {
	if IsChinese(tag) {
		return "zh-TW"
	}
	return "en"
}

// IsChinese reports whether tag is the Traditional Chinese locale.
func IsChinese(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "zh"
}

// Toggle switches between the two supported languages.
func Toggle(tag language.Tag) language.Tag {
	if IsChinese(tag) {
		return English
	}
	return TraditionalChinese
}

// Supported returns the supported tags, English first.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Printer returns a message printer for tag backed by the ProcuBot catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(Parse(tag.String()), message.Catalog(cat))
}

// T formats key in the given language.
func T(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// errorKeys maps each error class to its message key.
var errorKeys = map[classify.Kind]string{
	classify.KindCredential:      KeyErrConfig,
	classify.KindRateLimit:       KeyErrRateLimit,
	classify.KindSafety:          KeyErrSafety,
	classify.KindUnsupportedMIME: KeyErrUnsupportedMIME,
	classify.KindTransient:       KeyErrTransient,
	classify.KindTimeout:         KeyErrTimeout,
}

// ErrorMessage returns the localized text for a failed turn. Unclassified
// errors get the generic message followed by the raw error text.
func ErrorMessage(tag language.Tag, kind classify.Kind, raw string) string {
	p := Printer(tag)
	if key, ok := errorKeys[kind]; ok {
		return p.Sprintf(key)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p.Sprintf(KeyErrGeneric)
	}
	return p.Sprintf(KeyErrUnknown, raw)
}

// buildCatalog loads both string tables into one catalog.
func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(English))
	for key, msg := range englishMessages {
		if err := b.SetString(English, key, msg); err != nil {
			panic("i18n: " + key + ": " + err.Error())
		}
	}
	for key, msg := range chineseMessages {
		if err := b.SetString(TraditionalChinese, key, msg); err != nil {
			panic("i18n: " + key + ": " + err.Error())
		}
	}
	return b
}
