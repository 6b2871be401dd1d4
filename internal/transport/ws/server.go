package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
	outQueue   = 64
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session := uuid.NewString()
		out := make(chan []byte, outQueue)
		closeCh := make(chan protocol.CloseCode, 1)
		id, ok := s.handshake(r.Context(), conn, session, out, closeCh)
		if !ok {
			return
		}
		defer s.leave(id, session)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			ping := time.NewTicker(pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case code := <-closeCh:
					closeWith(conn, int(code), code.Reason())
					cancel()
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						cancel()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		s.readLoop(ctx, conn, id, out)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, session string, out chan []byte, closeCh chan protocol.CloseCode) (uint16, bool) {
	respCh := make(chan world.ConnectResponse, 1)
	select {
	case s.world.Connect() <- world.ConnectRequest{SessionID: session, Out: out, Close: closeCh, Resp: respCh}:
	case <-ctx.Done():
		return 0, false
	}
	var resp world.ConnectResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return 0, false
	}
	if resp.Err != "" {
		closeWith(conn, websocket.ClosePolicyViolation, resp.Err)
		return 0, false
	}
	if err := writeJSON(conn, resp.Init); err != nil {
		s.leave(resp.ID, session)
		return 0, false
	}
	s.logf("connect id=%d session=%s remote=%s", resp.ID, session, conn.RemoteAddr())
	return resp.ID, true
}

// leave gives up after a second so a stopped world cannot pin the handler.
func (s *Server) leave(id uint16, session string) {
	select {
	case s.world.Leave() <- world.LeaveRequest{ID: id, SessionID: session}:
	case <-time.After(time.Second):
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, id uint16, out chan []byte) {
	tu := s.world.Tuning()
	lim := protocol.Limits{
		NameMaxRunes: tu.Limits.NameMaxRunes,
		TeamMaxRunes: tu.Limits.TeamMaxRunes,
		ChatMaxRunes: tu.Limits.ChatMaxRunes,
		MaxViewportW: tu.AOI.MaxViewportW,
		MaxViewportH: tu.AOI.MaxViewportH,
	}
	limiter := rate.NewLimiter(rate.Limit(tu.RateLimits.ControlPerSec), tu.RateLimits.ControlBurst)
	limited := false

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if kind == websocket.BinaryMessage {
			in, ok := protocol.DecodeInput(msg)
			if !ok {
				continue
			}
			env := world.ControlEnvelope{AgentID: id, Kind: world.ControlInput, HasAngle: in.HasAngle, Angle: in.Angle, Boost: in.Boost}
			select {
			case s.world.Inbox() <- env:
			default:
				// Inputs are intent; a newer one supersedes a dropped one.
			}
			continue
		}

		if !limiter.Allow() {
			// One refusal per burst of dropped controls.
			if !limited {
				limited = true
				reply(out, protocol.ErrRateLimit, "too many control messages")
			}
			continue
		}
		limited = false
		if base, err := protocol.DecodeBase(msg); err != nil || !protocol.IsControlType(base.Type) {
			reply(out, protocol.ErrBadRequest, "unknown control message")
			continue
		}
		env, code, ok := decodeControl(msg, lim, tu.AOI.MinViewport)
		if code != 0 {
			s.logf("close id=%d code=%d (%s)", id, code, code.Reason())
			closeWith(conn, int(code), code.Reason())
			return
		}
		if !ok {
			continue
		}
		env.AgentID = id
		select {
		case s.world.Inbox() <- env:
		case <-ctx.Done():
			return
		}
	}
}

// decodeControl turns a JSON text message into a world control. A non-zero code means
// the connection must be closed; ok is false for messages that are simply ignored.
func decodeControl(msg []byte, lim protocol.Limits, minViewport int) (env world.ControlEnvelope, code protocol.CloseCode, ok bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return env, 0, false
	}
	switch base.Type {
	case protocol.TypeJoin:
		var m protocol.JoinMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, 0, false
		}
		if _, _, c := protocol.ValidateJoin(m, lim); c != 0 {
			return env, c, false
		}
		return world.ControlEnvelope{Kind: world.ControlJoin, Name: m.Name, Team: m.Team}, 0, true
	case protocol.TypeViewport:
		var m protocol.ViewportMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, 0, false
		}
		usable, c := protocol.ValidateViewport(m, lim, minViewport)
		if c != 0 || !usable {
			return env, c, false
		}
		return world.ControlEnvelope{Kind: world.ControlViewport, W: m.W, H: m.H}, 0, true
	case protocol.TypePerf:
		var m protocol.PerfMsg
		if json.Unmarshal(msg, &m) != nil || !protocol.ValidPerfMode(m.Mode) {
			return env, 0, false
		}
		return world.ControlEnvelope{Kind: world.ControlPerf, Mode: m.Mode}, 0, true
	case protocol.TypeUpdateTeam:
		var m protocol.UpdateTeamMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, 0, false
		}
		if protocol.HasControlChars(m.Team) {
			return env, protocol.CloseControlChars, false
		}
		return world.ControlEnvelope{Kind: world.ControlUpdateTeam, Team: m.Team}, 0, true
	case protocol.TypeChat:
		var m protocol.ChatMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, 0, false
		}
		return world.ControlEnvelope{Kind: world.ControlChat, Text: m.Text}, 0, true
	}
	return env, 0, false
}

// reply queues an error frame for the writer without blocking the reader.
func reply(out chan []byte, code, message string) {
	b, err := protocol.EncodeError(code, message)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
