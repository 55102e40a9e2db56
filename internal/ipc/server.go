package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

const maxLine = 1 << 20

// writeTimeout bounds every write to a client. A client that stops reading
// for longer is disconnected.
const writeTimeout = 5 * time.Second

// Lister provides the current list and pushes refreshed ones.
type Lister interface {
	Current() []screenshot.Record
	Subscribe(fn func([]screenshot.Record)) *event.Subscription
}

// Shortcuts runs menu actions for the tray front end.
type Shortcuts interface {
	Menu() []launcher.Item
	Activate(ctx context.Context, id string) error
	OpenFile(ctx context.Context, path string) error
	CopyPath(ctx context.Context, text string) error
}

// Server accepts front end connections on a unix socket.
type Server struct {
	path      string
	lister    Lister
	shortcuts Shortcuts
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewServer creates a server that will listen on the socket at path.
func NewServer(path string, lister Lister, shortcuts Shortcuts, logger *slog.Logger) *Server {
	return &Server{
		path:      path,
		lister:    lister,
		shortcuts: shortcuts,
		logger:    logger.With(slog.String("component", "ipc")),
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Listen creates the socket, replacing a stale one left by a previous run.
func (s *Server) Listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close() //nolint:errcheck
		return nil, fmt.Errorf("restricting socket permissions: %w", err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx ends, then closes every open
// connection and removes the socket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("ipc listening", "socket", s.path)
	go func() {
		<-ctx.Done()
		ln.Close() //nolint:errcheck
	}()

	defer func() {
		s.wg.Wait()
		os.Remove(s.path) //nolint:errcheck
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// session is one front end connection.
type session struct {
	conn net.Conn
	mu   sync.Mutex // serializes writes from replies and pushes
	enc  *json.Encoder

	// latest holds the newest list not yet pushed. The bus handler replaces
	// a superseded list instead of waiting on the socket.
	latest chan []screenshot.Record
	sub    *event.Subscription
}

func (ss *session) send(resp Response) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if err := ss.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return ss.enc.Encode(resp)
}

// offer queues list for the pusher without blocking. It is only called from
// the bus dispatch goroutine, so the loop ends after at most one eviction.
func (ss *session) offer(list []screenshot.Record) {
	for {
		select {
		case ss.latest <- list:
			return
		default:
		}
		select {
		case <-ss.latest:
		default:
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	ss := &session{
		conn:   conn,
		enc:    json.NewEncoder(conn),
		latest: make(chan []screenshot.Record, 1),
	}
	done := make(chan struct{})
	var pushers sync.WaitGroup
	defer func() {
		// Closing the conn first unblocks a pending write before the
		// subscription waits for its in-flight delivery.
		conn.Close() //nolint:errcheck
		close(done)
		ss.sub.Cancel()
		pushers.Wait()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close() //nolint:errcheck
		case <-done:
		}
	}()

	s.logger.Debug("ipc client connected")
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		var req Request
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			if err := ss.send(Response{Error: "invalid request"}); err != nil {
				return
			}
			continue
		}
		if req.Command == CommandSubscribe && ss.sub == nil {
			pushers.Go(func() { s.push(ss, done) })
		}
		resp, err := s.handle(ctx, ss, req)
		if err != nil {
			resp = Response{Error: err.Error()}
		}
		resp.ID = req.ID
		if err := ss.send(resp); err != nil {
			s.logger.Debug("ipc write failed", "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		s.logger.Debug("ipc read failed", "error", err)
	}
	s.logger.Debug("ipc client disconnected")
}

// push writes queued lists until the session ends. A failed write closes
// the connection, which also ends the read loop.
func (s *Server) push(ss *session, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case list := <-ss.latest:
			if err := ss.send(Response{Event: EventScreenshotsUpdated, Screenshots: nonNil(list)}); err != nil {
				s.logger.Debug("ipc push failed, dropping client", "error", err)
				ss.conn.Close() //nolint:errcheck
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, ss *session, req Request) (Response, error) {
	switch req.Command {
	case CommandGetScreenshots:
		return Response{Screenshots: nonNil(s.lister.Current())}, nil

	case CommandOpenFile, CommandCopyPath:
		if !s.isListed(req.Path) {
			return Response{}, fmt.Errorf("not a listed screenshot: %q", req.Path)
		}
		var err error
		if req.Command == CommandOpenFile {
			err = s.shortcuts.OpenFile(ctx, req.Path)
		} else {
			err = s.shortcuts.CopyPath(ctx, req.Path)
		}
		if err != nil {
			return Response{}, err
		}
		return Response{OK: true}, nil

	case CommandSubscribe:
		// Repeated subscribes on one connection share the first subscription.
		if ss.sub == nil {
			ss.sub = s.lister.Subscribe(ss.offer)
		}
		return Response{OK: true}, nil

	case CommandMenuGet:
		return Response{Items: s.shortcuts.Menu()}, nil

	case CommandMenuActivate:
		if err := s.shortcuts.Activate(ctx, req.Item); err != nil {
			return Response{}, err
		}
		return Response{OK: true}, nil
	}
	return Response{}, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
}

func (s *Server) isListed(path string) bool {
	if path == "" {
		return false
	}
	for _, r := range s.lister.Current() {
		if r.FilePath == path {
			return true
		}
	}
	return false
}

func nonNil(list []screenshot.Record) []screenshot.Record {
	if list == nil {
		return []screenshot.Record{}
	}
	return list
}
