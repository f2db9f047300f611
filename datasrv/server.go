// Package datasrv serves a skimmed dataset to the downstream training stage
// over ZeroMQ, as Arrow IPC payloads.
package datasrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-zeromq/zmq4"

	"delskim/arrowio"
	"delskim/skim"
	"delskim/table"
)

// Request is the wire request: which part of the dataset to fetch.
// "events" and "files" reply with Arrow IPC bytes; "schema" replies with a
// JSON listing of column names per part.
type Request struct {
	Get string `json:"get"`
}

// errorReply is the JSON error frame sent for bad requests.
type errorReply struct {
	Error string `json:"error"`
}

// Server is a ZeroMQ REP node answering dataset requests. Payloads are
// serialized once at construction; the serve loop only ships bytes.
type Server struct {
	endpoint string

	eventsIPC []byte
	filesIPC  []byte
	schema    []byte

	ctx    context.Context
	cancel context.CancelFunc
	sock   zmq4.Socket
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewServer creates a dataset server for a merged dataset. The dataset is
// split into its event table and per-file bookkeeping table, and both are
// serialized up front.
func NewServer(endpoint string, dataset table.Table, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	events, files := skim.SplitDataset(dataset)
	eventsIPC, err := serializeTable(events)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event table: %w", err)
	}
	filesIPC, err := serializeTable(files)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bookkeeping table: %w", err)
	}
	schema, err := json.Marshal(map[string][]string{
		"events": events.Names(),
		"files":  files.Names(),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		endpoint:  endpoint,
		eventsIPC: eventsIPC,
		filesIPC:  filesIPC,
		schema:    schema,
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
	}, nil
}

func serializeTable(t table.Table) ([]byte, error) {
	rec, err := t.ToRecord(memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return arrowio.SerializeRecord(rec)
}

// Start binds the REP socket and begins answering requests in the
// background.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	s.sock = zmq4.NewRep(s.ctx)
	if err := s.sock.Listen(s.endpoint); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to bind %s: %w", s.endpoint, err)
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("dataset server listening", "endpoint", s.Addr())

	s.wg.Add(1)
	go s.serveLoop()
	return nil
}

// Addr returns the bound endpoint, with the actual port when the endpoint
// requested an ephemeral one.
func (s *Server) Addr() string {
	if s.sock != nil {
		if addr := s.sock.Addr(); addr != nil {
			return "tcp://" + addr.String()
		}
	}
	return s.endpoint
}

// Stop shuts the server down and waits for the serve loop to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if err := s.sock.Close(); err != nil {
		_ = err // best effort during shutdown
	}
	s.wg.Wait()
}

func (s *Server) serveLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msg, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				continue
			}
		}

		if err := s.sock.Send(zmq4.NewMsg(s.handle(msg.Bytes()))); err != nil {
			s.log.Warn("failed to send reply", "error", err)
		}
	}
}

func (s *Server) handle(raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return mustError(fmt.Sprintf("bad request: %v", err))
	}

	switch req.Get {
	case "events":
		return s.eventsIPC
	case "files":
		return s.filesIPC
	case "schema":
		return s.schema
	default:
		return mustError(fmt.Sprintf("unknown request %q", req.Get))
	}
}

func mustError(msg string) []byte {
	out, err := json.Marshal(errorReply{Error: msg})
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return out
}
