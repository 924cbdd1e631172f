package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"vikeyd/internal/logging"
	"vikeyd/internal/shortcuts"
)

// Daemon is the control surface the IPC server exposes. cmd/vikeyd
// implements it over the live pipeline, engine, and shortcut store.
type Daemon interface {
	Status() StatusResponse
	SetEnabled(enabled bool) error
	SetMethod(method string) error
	RestoreWord(word string) error
	ReloadConfig() error

	ShortcutAdd(trigger, replacement string) error
	ShortcutRemove(trigger string) error
	ShortcutList() ([]shortcuts.Shortcut, error)
	ShortcutClear() error
	ShortcutImport(format string, data []byte) (int, error)
	ShortcutExport() ([]byte, error)

	// Shutdown initiates daemon shutdown. Called after the response is
	// written.
	Shutdown()
}

// Server serves the control channel: a unix socket on POSIX, a named pipe
// on Windows. One request/response pair per read; clients may pipeline
// multiple requests over one connection.
type Server struct {
	socketPath string
	timeout    time.Duration
	daemon     Daemon
	log        *logging.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a server for the given socket path.
func NewServer(socketPath string, timeout time.Duration, daemon Daemon, log *logging.Logger) *Server {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		socketPath: socketPath,
		timeout:    timeout,
		daemon:     daemon,
		log:        log.WithComponent("ipc"),
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("control channel listening", "path", s.socketPath)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	err := s.listener.Close()
	s.wg.Wait()
	cleanupSocket(s.socketPath)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	for {
		conn.SetReadDeadline(time.Now().Add(s.timeout))
		msg, err := ReadMessage(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("connection closed", "error", err)
			}
			return
		}

		resp := s.dispatch(msg)

		conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err := resp.Write(conn); err != nil {
			s.log.Debug("write response failed", "error", err)
			return
		}

		if msg.Header.Type == MsgShutdown {
			// Response is on the wire; the daemon may now exit.
			s.daemon.Shutdown()
			return
		}
	}
}

func (s *Server) dispatch(msg *Message) *Message {
	id := msg.Header.RequestID

	switch msg.Header.Type {
	case MsgPing:
		return NewMessage(MsgPong, id, nil)

	case MsgShutdown:
		return mustResponse(MsgShutdownResp, id, &Ack{Success: true})

	case MsgStatus:
		return mustResponse(MsgStatusResp, id, s.daemon.Status())

	case MsgSetEnabled:
		var req SetEnabledRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		return ackResponse(MsgSetEnabledResp, id, s.daemon.SetEnabled(req.Enabled))

	case MsgSetMethod:
		var req SetMethodRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		return ackResponse(MsgSetMethodResp, id, s.daemon.SetMethod(req.Method))

	case MsgRestoreWord:
		var req RestoreWordRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		return ackResponse(MsgRestoreWordResp, id, s.daemon.RestoreWord(req.Word))

	case MsgReloadConfig:
		return ackResponse(MsgReloadConfigResp, id, s.daemon.ReloadConfig())

	case MsgShortcutAdd:
		var req ShortcutAddRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		return ackResponse(MsgShortcutAddResp, id, s.daemon.ShortcutAdd(req.Trigger, req.Replacement))

	case MsgShortcutRemove:
		var req ShortcutRemoveRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		return ackResponse(MsgShortcutRemoveResp, id, s.daemon.ShortcutRemove(req.Trigger))

	case MsgShortcutList:
		list, err := s.daemon.ShortcutList()
		if err != nil {
			return NewErrorMessage(id, ErrInternalError, err.Error())
		}
		return mustResponse(MsgShortcutListResp, id, &ShortcutListResponse{Shortcuts: list})

	case MsgShortcutClear:
		return ackResponse(MsgShortcutClearResp, id, s.daemon.ShortcutClear())

	case MsgShortcutImport:
		var req ShortcutImportRequest
		if err := Decode(msg.Payload, &req); err != nil {
			return NewErrorMessage(id, ErrInvalidRequest, "invalid payload")
		}
		n, err := s.daemon.ShortcutImport(req.Format, req.Data)
		resp := &ShortcutImportResponse{Success: err == nil, Imported: n}
		if err != nil {
			resp.Error = err.Error()
		}
		return mustResponse(MsgShortcutImportResp, id, resp)

	case MsgShortcutExport:
		data, err := s.daemon.ShortcutExport()
		if err != nil {
			return NewErrorMessage(id, ErrInternalError, err.Error())
		}
		return mustResponse(MsgShortcutExportResp, id, &ShortcutExportResponse{Data: data})

	default:
		return NewErrorMessage(id, ErrNotFound, fmt.Sprintf("unknown message type %#x", uint16(msg.Header.Type)))
	}
}

func ackResponse(msgType MessageType, requestID uint32, err error) *Message {
	ack := &Ack{Success: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	return mustResponse(msgType, requestID, ack)
}

func mustResponse(msgType MessageType, requestID uint32, v any) *Message {
	resp, err := NewResponse(msgType, requestID, v)
	if err != nil {
		return NewErrorMessage(requestID, ErrInternalError, err.Error())
	}
	return resp
}
