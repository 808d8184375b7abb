// Package serve runs checks requested over a newline-delimited JSON stream,
// typically stdin/stdout of an editor or CI helper.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Filter narrows one check. Empty Packages selects every workspace package;
// naming a package the workspace does not have is an error.
type Filter struct {
	Packages []string
	Kinds    diagnostic.FilterConfig
}

// Checker runs a boundary check of the workspace at root.
type Checker interface {
	CheckWorkspace(ctx context.Context, root string, filter Filter) (*types.Report, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, root string, filter Filter) (*types.Report, error)

// CheckWorkspace calls f.
func (f CheckerFunc) CheckWorkspace(ctx context.Context, root string, filter Filter) (*types.Report, error) {
	return f(ctx, root, filter)
}

// Server manages the streaming checker
type Server struct {
	checker Checker
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(checker Checker, in io.Reader, out io.Writer) *Server {
	return &Server{
		checker: checker,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	s.sendReady()

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until input closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	switch req.Type {
	case "check":
		s.handleCheck(ctx, req.Payload)
	case "check_batch":
		s.handleCheckBatch(ctx, req.Payload)
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	data, _ := json.Marshal(ReadyData{Version: Version})
	s.encoder.Encode(Response{
		Success: true,
		Type:    "ready",
		Data:    data,
	})
}

func (s *Server) handleCheck(ctx context.Context, payload json.RawMessage) {
	var p CheckPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("check", err.Error())
		return
	}

	report, err := s.check(ctx, p)
	if err != nil {
		s.sendError("check", err.Error())
		return
	}

	data, _ := json.Marshal(report)
	s.encoder.Encode(Response{
		Success: true,
		Type:    "check",
		Data:    data,
	})
}

func (s *Server) handleCheckBatch(ctx context.Context, payload json.RawMessage) {
	var p CheckBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("check_batch", err.Error())
		return
	}

	result := CheckBatchResult{Results: make([]CheckBatchItem, 0, len(p.Items))}
	for _, item := range p.Items {
		report, err := s.check(ctx, item)
		entry := CheckBatchItem{Root: item.Root, Report: report}
		if err != nil {
			entry.Error = err.Error()
		}
		result.Results = append(result.Results, entry)
	}

	data, _ := json.Marshal(result)
	s.encoder.Encode(Response{
		Success: true,
		Type:    "check_batch",
		Data:    data,
	})
}

// check runs one payload with its package and kind filters.
func (s *Server) check(ctx context.Context, p CheckPayload) (*types.Report, error) {
	if p.Root == "" {
		return nil, fmt.Errorf("root is required")
	}

	filter := Filter{
		Packages: p.Packages,
		Kinds:    diagnostic.FilterConfig{Include: p.KindsInclude, Exclude: p.KindsExclude},
	}
	if _, err := diagnostic.Filter(nil, filter.Kinds); err != nil {
		return nil, fmt.Errorf("invalid kind filter: %w", err)
	}
	return s.checker.CheckWorkspace(ctx, p.Root, filter)
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}
