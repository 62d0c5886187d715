package i18n

import "strings"

type Lang string

const (
	UZ Lang = "uz"
	EN Lang = "en"
)

func FromLanguageCode(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "en") {
		return EN
	}
	return UZ
}

func Parse(s string) Lang {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "en":
		return EN
	default:
		return UZ
	}
}

func All() []Lang { return []Lang{UZ, EN} }
