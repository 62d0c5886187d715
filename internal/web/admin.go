package web

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/nikolalohinski/gonja"

	"github.com/BatmanBruc/ofmbot/types"
)

var counterLabels = map[string]string{
	types.CounterStart:        "Start",
	types.CounterResume:       "Rezyume",
	string(types.OpConvert):   "Konvert",
	string(types.OpMerge):     "Birlashtirish",
	string(types.OpSplit):     "Ajratish",
	string(types.OpOCR):       "OCR",
	string(types.OpTranslate): "Tarjima",
	string(types.OpPageNum):   "Raqamlash",
	string(types.OpWatermark): "Watermark",
}

const adminPage = `<html><head>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
<title>OFM Admin</title>
</head><body class="p-4">
<h3>OFM statistikasi</h3>
<p>Foydalanuvchilar: {{ users }}</p>
<table class="table table-sm table-bordered w-auto">
{% for row in rows %}  <tr><th>{{ row.label | escape }}</th><td>{{ row.value }}</td></tr>
{% endfor %}</table>
</body></html>
`

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.adminAllowed(r) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
		return
	}

	page, err := s.renderAdmin(r)
	if err != nil {
		s.log.Error().Err(err).Msg("render admin")
		writeJSON(w, map[string]interface{}{"status": "error", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) adminAllowed(r *http.Request) bool {
	if s.cfg.AdminToken == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

func (s *Server) renderAdmin(r *http.Request) (string, error) {
	counters := map[string]int64{}
	users := 0
	if s.stats != nil {
		var err error
		if counters, err = s.stats.Counters(r.Context()); err != nil {
			return "", fmt.Errorf("load counters: %w", err)
		}
		if users, err = s.stats.ActiveUsers(r.Context()); err != nil {
			return "", fmt.Errorf("count users: %w", err)
		}
	}

	rows := make([]map[string]interface{}, 0, len(counterLabels))
	for _, name := range types.CounterNames() {
		label, ok := counterLabels[name]
		if !ok {
			label = name
		}
		rows = append(rows, map[string]interface{}{"label": label, "value": counters[name]})
	}
	tpl, err := gonja.FromString(adminPage)
	if err != nil {
		return "", fmt.Errorf("parse admin template: %w", err)
	}
	return tpl.Execute(map[string]interface{}{"users": users, "rows": rows})
}
