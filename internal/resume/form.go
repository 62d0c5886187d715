package resume

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	Placeholder = "—"
	DefaultNo   = "Yo‘q"
	DefaultNat  = "O‘zbek"
)

// Fields lists the form inputs copied into the document, in form order.
var Fields = []string{
	"full_name",
	"phone",
	"birth_date",
	"birth_place",
	"nationality",
	"party_membership",
	"education",
	"university",
	"specialization",
	"ilmiy_daraja",
	"ilmiy_unvon",
	"languages",
	"dav_mukofoti",
	"deputat",
	"adresss",
	"current_position_date",
	"current_position_full",
	"work_experience",
}

// RelativeFields are the columns of the relatives table.
var RelativeFields = []string{"relation", "full_name", "birth", "work", "address"}

// absentDefaults apply when a field is not submitted at all.
var absentDefaults = map[string]string{
	"nationality":      DefaultNat,
	"party_membership": DefaultNo,
	"specialization":   DefaultNo,
	"ilmiy_daraja":     DefaultNo,
	"ilmiy_unvon":      DefaultNo,
	"languages":        DefaultNo,
	"dav_mukofoti":     DefaultNo,
	"deputat":          DefaultNo,
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

type Form struct {
	TelegramID int64
	Values     map[string]string
	Relatives  []map[string]string
	Photo      []byte
}

// ParseValues builds a Form from submitted values. Every field is optional.
func ParseValues(values url.Values) *Form {
	f := &Form{Values: make(map[string]string, len(Fields))}
	for _, name := range Fields {
		raw, present := values[name]
		v := ""
		if present && len(raw) > 0 {
			v = strings.TrimSpace(raw[0])
		} else if def, ok := absentDefaults[name]; ok {
			v = def
		}
		if v == "" {
			v = Placeholder
		}
		f.Values[name] = v
	}
	f.Relatives = ParseRelatives(values.Get("relatives"))

	if id, err := strconv.ParseInt(strings.TrimSpace(values.Get("tg_id")), 10, 64); err == nil && id > 0 {
		f.TelegramID = id
	}
	return f
}

// ParseRelatives decodes the relatives JSON list. Anything that is not a list of objects yields an empty list.
func ParseRelatives(raw string) []map[string]string {
	out := make([]map[string]string, 0)
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return out
	}
	list := gjson.Parse(raw)
	if !list.IsArray() {
		return out
	}
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		rel := make(map[string]string, len(RelativeFields))
		for _, key := range RelativeFields {
			rel[key] = ""
		}
		item.ForEach(func(key, value gjson.Result) bool {
			rel[key.String()] = strings.TrimSpace(value.String())
			return true
		})
		out = append(out, rel)
	}
	return out
}

func (f *Form) FullName() string { return f.Values["full_name"] }

func (f *Form) Phone() string { return f.Values["phone"] }

// BaseName is the file name stem for the rendered documents.
func (f *Form) BaseName() string {
	return SafeName(f.FullName(), "user")
}

// Payload is the JSON dump archived next to the photo.
func (f *Form) Payload(ts time.Time) ([]byte, error) {
	payload := make(map[string]interface{}, len(f.Values)+2)
	for k, v := range f.Values {
		payload[k] = v
	}
	payload["relatives"] = f.Relatives
	payload["timestamp"] = ts.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
	return json.MarshalIndent(payload, "", "  ")
}

// SafeName joins the words of s with underscores and drops everything outside [A-Za-z0-9_].
func SafeName(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == Placeholder {
		return def
	}
	s = unsafeNameRe.ReplaceAllString(strings.Join(strings.Fields(s), "_"), "")
	if s == "" {
		return def
	}
	return s
}
