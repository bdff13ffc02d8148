package natsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/odorscope/odorscope/internal/analysis"
	"github.com/odorscope/odorscope/internal/metrics"
)

type Config struct {
	URL     string
	Subject string
	Queue   string
}

type Submitter interface {
	Submit(sel analysis.Selection) (*analysis.Result, error)
}

// Request matches the body of POST /api/analyze.
type Request struct {
	Concentrations map[string]float64 `json:"concentrations"`
}

// Reply carries either a result or an error with its kind.
type Reply struct {
	Result *analysis.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	Kind   string           `json:"kind,omitempty"`
}

// Responder answers analysis requests sent with NATS request/reply.
type Responder struct {
	cfg      Config
	nc       *nats.Conn
	closed   chan struct{}
	analyzer Submitter
}

func New(cfg Config, analyzer Submitter) (*Responder, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.URL,
		nats.Name("odorscope"),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Responder{cfg: cfg, nc: nc, closed: closed, analyzer: analyzer}, nil
}

// Close drops the connection without draining. Run drains on its own when
// its context ends, so Close is only needed when Run never started.
func (r *Responder) Close() {
	if r.nc != nil && !r.nc.IsClosed() {
		r.nc.Close()
	}
}

// Run serves requests until ctx is cancelled.
func (r *Responder) Run(ctx context.Context) error {
	sub, err := r.nc.QueueSubscribe(r.cfg.Subject, r.cfg.Queue, r.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.cfg.Subject, err)
	}

	if err := r.nc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	log.Printf("nats responder listening on %s (queue %s)", r.cfg.Subject, r.cfg.Queue)

	<-ctx.Done()
	// Drain finishes in-flight requests, then closes the connection.
	if err := r.nc.Drain(); err != nil {
		log.Printf("drain %s: %v", sub.Subject, err)
		r.Close()
	}
	<-r.closed
	return nil
}

func (r *Responder) handleMsg(msg *nats.Msg) {
	if msg.Reply == "" {
		log.Printf("analysis request on %s without reply subject, dropped", msg.Subject)
		return
	}

	if err := msg.Respond(r.handle(msg.Data)); err != nil {
		log.Printf("respond: %v", err)
	}
}

func (r *Responder) handle(data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		metrics.Analyses.WithLabelValues("nats", "bad_request").Inc()
		return encode(Reply{Error: fmt.Sprintf("decode request: %v", err), Kind: "bad_request"})
	}

	res, err := r.analyzer.Submit(req.Concentrations)
	if err != nil {
		kind := analysis.ErrorKind(err)
		metrics.Analyses.WithLabelValues("nats", kind).Inc()
		if !analysis.IsRequestError(err) {
			log.Printf("analyze (nats): %v", err)
		}
		return encode(Reply{Error: err.Error(), Kind: kind})
	}

	metrics.Analyses.WithLabelValues("nats", "ok").Inc()
	return encode(Reply{Result: res})
}

func encode(reply Reply) []byte {
	payload, err := json.Marshal(reply)
	if err != nil {
		return []byte(`{"error":"encode reply","kind":"internal"}`)
	}
	return payload
}
