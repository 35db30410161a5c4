// logfixture serves generated error logs over the audit engine's HTTP
// log-source contract, for local end-to-end runs without a real log
// collector:
//
//	go run ./tools/logfixture -addr :8070 -errors 25
//	LOG_SOURCE_URL=http://localhost:8070 go run ./cmd/audit
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type logRecord struct {
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type template struct {
	method string
	path   func() string
	status int
	msg    func() string
}

func templates() []template {
	return []template{
		{
			method: "POST",
			path:   func() string { return "/users/" + uuid.NewString() },
			status: 500,
			msg:    func() string { return fmt.Sprintf("duplicate key %s violates unique constraint", uuid.NewString()) },
		},
		{
			method: "GET",
			path:   func() string { return fmt.Sprintf("/orders/%d", rand.Intn(99999)) },
			status: 404,
			msg:    func() string { return fmt.Sprintf("order %d not found", rand.Intn(9999999)) },
		},
		{
			method: "PUT",
			path:   func() string { return "/inventory/sync" },
			status: 502,
			msg: func() string {
				return fmt.Sprintf("upstream 10.0.%d.%d refused connection at %s",
					rand.Intn(255), rand.Intn(255), time.Now().Format("2006-01-02T15:04:05"))
			},
		},
		{
			method: "GET",
			path:   func() string { return "/healthz" },
			status: 200,
			msg:    func() string { return "ok" }, // sub-400 noise the engine must filter
		},
	}
}

func main() {
	addr := flag.String("addr", ":8070", "Listen address")
	errCount := flag.Int("errors", 20, "Number of log records returned per fetch")
	flag.Parse()

	tmpls := templates()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /services/{service}/logs", func(w http.ResponseWriter, r *http.Request) {
		service := r.PathValue("service")
		records := make([]logRecord, 0, *errCount)
		for i := 0; i < *errCount; i++ {
			tmpl := tmpls[rand.Intn(len(tmpls))]
			records = append(records, logRecord{
				Method:     tmpl.method,
				Path:       tmpl.path(),
				StatusCode: tmpl.status,
				Message:    tmpl.msg(),
				Timestamp:  time.Now().UTC().Add(-time.Duration(rand.Intn(600)) * time.Second),
			})
		}
		log.Printf("serving %d records for service %s", len(records), service)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	})

	log.Printf("log fixture listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}
