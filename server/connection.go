// File: server/connection.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConnectionHandler owns exactly one socket at a time and runs the
// read, parse, dispatch, finalize cycle on a dedicated goroutine.
// Handlers are long-lived and reused across many connections. The
// business handler runs on the executor; the two sides communicate only
// through the dispatch envelope, the result channel and the serialized
// run-on-connection queue, so the socket is never touched from two
// goroutines at once.

package server

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/concurrency"
	"github.com/momentics/hioload-http/internal/http1"
	"github.com/momentics/hioload-http/internal/obs"
)

// readEventKind classifies notifications from the reader goroutine.
type readEventKind int

const (
	evRequest readEventKind = iota
	evWrongHeaders
	evTooLarge
	evClosed
)

type readEvent struct {
	kind    readEventKind
	req     *http1.Request
	herr    http1.HTTPError
	err     error
	timeout bool
}

// responseResult is the completion record a dispatched handler sends
// back, matched to the active request by ID. Results for superseded
// requests are dropped silently.
type responseResult struct {
	requestID       uint64
	response        *Response
	closeConnection bool
}

type dispatchItem struct {
	id  uint64
	req *http1.Request
}

// ConnectionHandler processes connections assigned by the listener. It
// is created once, kept in the pool, and rebound to new sockets.
type ConnectionHandler struct {
	id       int
	cfg      *Config
	handler  Handler
	executor api.Executor

	connCh  chan net.Conn
	quitCh  chan struct{}
	busy    atomic.Bool
	open    atomic.Bool
	results chan responseResult
	funcs   *concurrency.FuncQueue

	// requestID is monotonically increasing for the whole handler
	// lifetime, never per connection, so completions stranded from a
	// torn-down connection can never match a later request.
	requestID uint64

	// canceller state, shared between the connection goroutine and the
	// dispatched handler.
	mu        sync.Mutex
	activeID  uint64
	canceller api.Canceller

	// loop-owned connection state
	conn net.Conn
	bw   *bufio.Writer

	// wireID is the requestID currently allowed to write to the socket.
	// Zero means none. Responses stamped with any other ID are refused,
	// so a stale handler from a torn-down connection cannot inject bytes
	// into a later connection served by the same reused handler.
	wireID uint64
}

var _ ResponseTarget = (*ConnectionHandler)(nil)

func newConnectionHandler(id int, cfg *Config, handler Handler, executor api.Executor) *ConnectionHandler {
	h := &ConnectionHandler{
		id:       id,
		cfg:      cfg,
		handler:  handler,
		executor: executor,
		connCh:   make(chan net.Conn, 1),
		quitCh:   make(chan struct{}),
		results:  make(chan responseResult, 8),
		funcs:    concurrency.NewFuncQueue(),
	}
	go h.run()
	obs.Debugf("ConnectionHandler (%d): goroutine started", id)
	return h
}

// Busy reports whether this handler currently owns a connection.
func (h *ConnectionHandler) Busy() bool { return h.busy.Load() }

// acquire marks an idle handler busy. Used by the pool.
func (h *ConnectionHandler) acquire() bool {
	return h.busy.CompareAndSwap(false, true)
}

// assign hands a freshly accepted socket to the handler. The handler
// must have been acquired first; the buffered channel makes the handoff
// non-blocking for the accept loop.
func (h *ConnectionHandler) assign(conn net.Conn) {
	h.connCh <- conn
}

// run is the handler's permanent loop: wait for a connection, serve it,
// repeat. Between connections it still drains the function queue and
// drops stale completions so no producer can block on a dead mailbox.
func (h *ConnectionHandler) run() {
	for {
		select {
		case conn := <-h.connCh:
			h.serveConnection(conn)
			h.busy.Store(false)
		case <-h.funcs.Wake():
			h.funcs.Drain()
		case r := <-h.results:
			h.dropStale(r)
		case <-h.quitCh:
			// Closing the queue keeps late handlers from blocking in
			// RunOnConnection; their socket writes are no-ops by then.
			h.funcs.Close()
			obs.Debugf("ConnectionHandler (%d): goroutine stopped", h.id)
			return
		}
	}
}

// shutdown tears the handler down. Called by the pool.
func (h *ConnectionHandler) shutdown() {
	close(h.quitCh)
}

func (h *ConnectionHandler) nextRequestID() uint64 {
	h.requestID++
	return h.requestID
}

// serveConnection runs the per-connection state machine until the
// connection closes or the pool shuts down.
func (h *ConnectionHandler) serveConnection(raw net.Conn) {
	conn := raw
	secure := false
	if h.cfg.TLSConfig != nil {
		conn = tls.Server(raw, h.cfg.TLSConfig)
		secure = true
		obs.Debugf("ConnectionHandler (%d): connection is encrypted", h.id)
	}
	h.conn = conn
	h.bw = bufio.NewWriterSize(conn, flushBufferSize)
	h.open.Store(true)
	obs.Debugf("ConnectionHandler (%d): handle new connection from %s", h.id, conn.RemoteAddr())

	events := make(chan readEvent, 4)
	stopReader := make(chan struct{})
	readerDone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	go h.readLoop(conn, events, stopReader, readerDone)

	defer func() {
		close(stopReader)
		h.closeConn()
		<-readerDone
		h.wireID = 0
		h.funcs.Drain()
		h.conn = nil
		h.bw = nil
	}()

	pending := queue.New()
	var active *dispatchItem
	remote := conn.RemoteAddr().String()
	closing := false
	deferredLiteral := ""

	for {
		select {
		case ev := <-events:
			switch ev.kind {
			case evRequest:
				if closing {
					continue
				}
				// Suspend the read timer while a request is in flight;
				// finalize rearms it. The loop owns clear and rearm, the
				// reader only ever extends during body uploads.
				conn.SetReadDeadline(time.Time{})
				item := &dispatchItem{id: h.nextRequestID(), req: ev.req}
				if active == nil {
					active = item
					h.dispatch(item, secure, remote)
				} else {
					pending.Add(item)
				}

			case evWrongHeaders:
				literal := fmt.Sprintf("HTTP/1.1 %d\r\nConnection: close\r\n\r\n%s\r\n",
					ev.herr.StatusCode, ev.herr.Text)
				obs.Debugf("ConnectionHandler (%d): rejected headers (%d)", h.id, ev.herr.StatusCode)
				closing = true
				if active != nil {
					// A response is still in flight; emit the error
					// after it finalized to keep wire order.
					deferredLiteral = literal
					continue
				}
				h.writeLiteral(literal)
				h.closeConn()
				return

			case evTooLarge:
				obs.Debugf("ConnectionHandler (%d): request entity too large", h.id)
				closing = true
				if active != nil {
					deferredLiteral = responseTooLarge
					continue
				}
				h.writeLiteral(responseTooLarge)
				h.closeConn()
				return

			case evClosed:
				if ev.timeout {
					obs.Debugf("ConnectionHandler (%d): read timeout occured", h.id)
				} else {
					obs.Debugf("ConnectionHandler (%d): disconnected", h.id)
				}
				h.cancelActive()
				h.closeConn()
				return
			}

		case r := <-h.results:
			if active == nil || r.requestID != active.id {
				h.dropStale(r)
				continue
			}
			h.clearCanceller(active.id)
			active = nil
			closeConn := h.finalizeResponse(r)
			h.wireID = 0
			obs.Debugf("ConnectionHandler (%d): finished request %d", h.id, r.requestID)
			if deferredLiteral != "" {
				h.writeLiteral(deferredLiteral)
				h.closeConn()
				return
			}
			if closeConn || closing {
				h.closeConn()
				return
			}
			if pending.Length() > 0 {
				active = pending.Remove().(*dispatchItem)
				h.dispatch(active, secure, remote)
			} else {
				// Rearm the read timer for the next pipelined request.
				conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
			}

		case <-h.funcs.Wake():
			h.funcs.Drain()

		case <-h.quitCh:
			h.cancelActive()
			return
		}
	}
}

// readLoop feeds the parser from the socket and reports one event per
// outcome. It runs on its own goroutine so a stalled client cannot
// block finalization, and exits after any terminal event.
func (h *ConnectionHandler) readLoop(conn net.Conn, events chan<- readEvent, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	br := bufio.NewReaderSize(conn, 8192)
	parser := &http1.Parser{
		MaxRequestSize: h.cfg.MaxRequestSize,
		MaxBodySize:    h.cfg.MaxBodySize,
		Checkers:       h.cfg.HeadersCheckers,
		OnBodyProgress: func() {
			// Restart the read timer, otherwise it would expire during
			// large uploads.
			conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		},
	}
	for {
		status, err := parser.ReadRequest(br)
		var ev readEvent
		if err != nil {
			ev = readEvent{kind: evClosed, err: err, timeout: os.IsTimeout(err)}
		} else {
			switch status {
			case http1.Complete:
				ev = readEvent{kind: evRequest, req: parser.Request()}
			case http1.WrongHeaders:
				ev = readEvent{kind: evWrongHeaders, herr: parser.Err()}
			default:
				ev = readEvent{kind: evTooLarge}
			}
		}
		select {
		case events <- ev:
		case <-stop:
			return
		}
		if ev.kind != evRequest {
			return
		}
	}
}

// dispatch builds the envelope for a complete request and hands it to
// the executor. The connection goroutine never blocks on the handler.
func (h *ConnectionHandler) dispatch(item *dispatchItem, secure bool, remote string) {
	req := newRequest(item.req, secure, remote)
	resp := NewResponse(h)
	resp.requestID = item.id
	h.wireID = item.id

	closeConn := strings.EqualFold(req.Header("Connection"), "close")
	if !closeConn && strings.EqualFold(req.Version, "HTTP/1.0") {
		// HTTP 1.0 cannot do chunked mode, force close so the client
		// sees the end of the body.
		closeConn = true
	}
	if closeConn {
		resp.SetHeader("Connection", "close")
	}

	id := item.id
	h.mu.Lock()
	h.activeID = id
	h.canceller = nil
	h.mu.Unlock()

	params := ServiceParams{
		RequestID:       id,
		Request:         req,
		Response:        resp,
		CloseConnection: closeConn,
		RegisterCanceller: func(c api.Canceller) {
			h.registerCanceller(id, c)
		},
	}
	obs.Debugf("ConnectionHandler (%d): received request %d", h.id, id)
	if err := h.executor.Submit(func() { h.serviceRequest(params) }); err != nil {
		obs.Errorf("ConnectionHandler (%d): dispatch failed: %v", h.id, err)
		h.results <- responseResult{requestID: id, response: resp, closeConnection: true}
	}
}

// serviceRequest runs the business handler on an executor goroutine and
// reports completion. Panics are converted to a 500 and force a close
// because the response state is no longer known to be safe.
func (h *ConnectionHandler) serviceRequest(params ServiceParams) {
	result := responseResult{
		requestID:       params.RequestID,
		response:        params.Response,
		closeConnection: params.CloseConnection,
	}
	defer func() {
		if rec := recover(); rec != nil {
			obs.Errorf("ConnectionHandler (%d): unhandled panic in request handler: %v", h.id, rec)
			if !params.Response.HeadersSent() {
				params.Response.SetStatus(500, "internal server error")
			}
			result.closeConnection = true
		}
		h.results <- result
	}()
	h.handler.Service(params)
}

// finalizeResponse is the single place deciding keep-alive versus
// close. It runs exactly once per request, on the connection goroutine.
func (h *ConnectionHandler) finalizeResponse(r responseResult) bool {
	resp := r.response
	if !resp.HasSentLastPart() {
		resp.emit(nil, true)
	}

	closeConn := r.closeConnection
	if !closeConn {
		// Maybe the request handler added a Connection close header in
		// the meantime.
		if strings.EqualFold(resp.Header("Connection"), "close") {
			closeConn = true
		} else if resp.Header("Content-Length") == "" &&
			!strings.EqualFold(resp.Header("Transfer-Encoding"), "chunked") {
			// Without a length and without chunked framing the client
			// cannot detect the end of the body.
			closeConn = true
		}
	}
	return closeConn
}

func (h *ConnectionHandler) dropStale(r responseResult) {
	obs.Debugf("ConnectionHandler (%d): dropped stale completion for request %d", h.id, r.requestID)
}

// registerCanceller stores the canceller for an in-flight request. A
// registration for a request that is no longer active is cancelled
// immediately so the handler can abandon its work.
func (h *ConnectionHandler) registerCanceller(id uint64, c api.Canceller) {
	h.mu.Lock()
	if h.activeID == id {
		h.canceller = c
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	if c != nil {
		c.Cancel()
	}
}

func (h *ConnectionHandler) clearCanceller(id uint64) {
	h.mu.Lock()
	if h.activeID == id {
		h.activeID = 0
		h.canceller = nil
	}
	h.mu.Unlock()
}

// cancelActive invokes the canceller registered for the current
// request, if any. Cancellation is best effort; a handler that already
// finished sees its completion dropped by requestID instead.
func (h *ConnectionHandler) cancelActive() {
	h.mu.Lock()
	c := h.canceller
	h.activeID = 0
	h.canceller = nil
	h.mu.Unlock()
	if c != nil {
		c.Cancel()
	}
}

const responseTooLarge = "HTTP/1.1 413 entity too large\r\nConnection: close\r\n\r\n413 Entity too large\r\n"

// writeLiteral pushes a raw pre-framed response. Connection goroutine
// only.
func (h *ConnectionHandler) writeLiteral(s string) {
	h.WriteSocket([]byte(s))
	h.FlushSocket()
}

// closeConn flushes pending bytes best effort and closes the socket.
func (h *ConnectionHandler) closeConn() {
	if !h.open.Load() {
		return
	}
	h.bw.Flush()
	h.open.Store(false)
	h.conn.Close()
}

// RunOnConnection executes fn on the connection goroutine and blocks
// the caller until it ran. This is the only way code outside the
// connection goroutine may touch the socket. Must not be called from
// the connection goroutine itself.
func (h *ConnectionHandler) RunOnConnection(fn func()) {
	h.funcs.Run(fn)
}

// WriteSocket writes p to the socket. Backpressure comes from the
// bounded write buffer and the kernel send buffer; the call blocks
// until the bytes were accepted. Connection goroutine only.
func (h *ConnectionHandler) WriteSocket(p []byte) bool {
	if !h.open.Load() || h.bw == nil {
		return false
	}
	if _, err := h.bw.Write(p); err != nil {
		obs.Debugf("ConnectionHandler (%d): write failed: %v", h.id, err)
		h.open.Store(false)
		return false
	}
	return true
}

// FlushSocket flushes buffered bytes. Connection goroutine only.
func (h *ConnectionHandler) FlushSocket() {
	if !h.open.Load() || h.bw == nil {
		return
	}
	if err := h.bw.Flush(); err != nil {
		h.open.Store(false)
	}
}

// Connected reports whether the socket is still usable.
func (h *ConnectionHandler) Connected() bool {
	return h.open.Load()
}

// Writable reports whether a response stamped with requestID may write.
// Only the request the connection dispatched and has not yet finalized
// may; anything else is a stale writer from a superseded request or an
// earlier connection. Connection goroutine only.
func (h *ConnectionHandler) Writable(requestID uint64) bool {
	return h.open.Load() && requestID == h.wireID
}
