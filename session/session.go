package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sketchbox/sketchbox/canvas"
	"github.com/sketchbox/sketchbox/protocol"
)

// Session roles. Only the admin draws and starts rounds; users watch
// and guess over chat.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	// ErrSessionClosed is returned for input submitted after teardown.
	ErrSessionClosed = errors.New("session: closed")

	// ErrNotAllowed is returned when the current state or role gates
	// the requested affordance off.
	ErrNotAllowed = errors.New("session: action not permitted in current state")
)

// Options configure a session. Zero values get sensible defaults.
type Options struct {
	Server   string // websocket endpoint, e.g. ws://host:8000/game/
	RoomID   string
	Role     string
	Username string

	CanvasWidth    int
	CanvasHeight   int
	RenderInterval time.Duration

	// SnapshotQuality is the fixed JPEG quality for snapshot replies.
	SnapshotQuality int

	// SnapshotEncode overrides the snapshot compressor; tests inject
	// failures here.
	SnapshotEncode func(img image.Image, quality int) ([]byte, error)

	Control *ControlClient
	Metrics *Metrics
	Logf    func(format string, args ...any)
}

type command struct {
	kind  protocol.Kind
	point protocol.Point
	chat  protocol.ChatMessage
}

type snapshotResult struct {
	data []byte
	err  error
}

// Session runs the client side of one game room visit: the persistent
// connection, the action queue, the replay surface, and the chat log.
// One loop goroutine owns all of that state; everything else talks to
// it over channels.
type Session struct {
	opts    Options
	logf    func(format string, args ...any)
	metrics *Metrics

	conn    *Conn
	queue   canvas.Queue
	surface *canvas.Surface

	// sentChat holds IDs of locally echoed messages so the server's
	// copy is not displayed twice. Loop-owned.
	sentChat map[string]struct{}

	commands   chan command
	canvasReqs chan chan *image.RGBA
	snapshots  chan snapshotResult
	done       chan struct{}

	mu        sync.Mutex
	state     State
	reason    Reason
	chat      []protocol.ChatMessage
	notice    string
	lastFrame *image.RGBA
}

// New builds a session for the given room and role. Run must be called
// to connect.
func New(opts Options) *Session {
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = 900
	}
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = 500
	}
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = 50 * time.Millisecond
	}
	if opts.SnapshotQuality <= 0 {
		opts.SnapshotQuality = canvas.DefaultQuality
	}
	if opts.SnapshotEncode == nil {
		opts.SnapshotEncode = canvas.EncodeJPEG
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}

	return &Session{
		opts:       opts,
		logf:       opts.Logf,
		metrics:    opts.Metrics,
		surface:    canvas.New(opts.CanvasWidth, opts.CanvasHeight),
		sentChat:   make(map[string]struct{}),
		commands:   make(chan command, 64),
		canvasReqs: make(chan chan *image.RGBA),
		snapshots:  make(chan snapshotResult, 4),
		done:       make(chan struct{}),
		state:      StateConnecting,
	}
}

// Run connects and processes events until the server closes the
// connection or ctx is canceled. The connection is torn down on every
// exit path. A server-initiated close is a normal return; the outcome
// is readable from Status.
func (s *Session) Run(ctx context.Context) error {
	defer s.finish()

	if s.conn != nil {
		// Exactly one outstanding connection per session.
		s.conn.Close()
	}

	s.logf("SESSION: Connecting to %s (room %s, role %s)", s.opts.Server, s.opts.RoomID, s.opts.Role)
	conn, err := Dial(ctx, s.opts.Server, s.opts.RoomID, s.opts.Role)
	if err != nil {
		s.transition(StateClosed, ReasonUnknown)
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.transition(StateConnected, ReasonNone)

	ticker := time.NewTicker(s.opts.RenderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.transition(StateClosed, ReasonClean)
			return nil

		case frame, ok := <-conn.Frames():
			if !ok {
				ev := <-conn.Closed()
				s.render()
				s.logf("SESSION: Connection closed (code %d, reason %s): %s", ev.code, ev.reason, ev.detail)
				s.transition(StateClosed, ev.reason)
				return nil
			}
			s.handleFrame(frame)

		case cmd := <-s.commands:
			s.handleCommand(cmd)

		case <-ticker.C:
			s.render()

		case req := <-s.canvasReqs:
			req <- s.surface.Clone()

		case res := <-s.snapshots:
			s.handleSnapshotResult(res)
		}
	}
}

// handleFrame decodes one inbound frame and routes the action. Decode
// failures drop the frame and keep the connection open.
func (s *Session) handleFrame(frame protocol.Frame) {
	action, err := protocol.Decode(frame)
	if err != nil {
		s.metrics.protocolViolations.Inc()
		s.logf("WIRE: Dropped malformed frame: %v", err)
		return
	}
	s.metrics.framesReceived.WithLabelValues(string(action.Kind)).Inc()

	switch action.Kind {
	case protocol.KindNone:
		s.logf("WIRE: Ignoring unrecognized message type")

	case protocol.KindPing:
		// Answered inline, bypassing the queue, so the keepalive is
		// never delayed behind a backlog of draw actions.
		s.metrics.pings.Inc()
		s.send(protocol.Action{Kind: protocol.KindPong})

	case protocol.KindPong:
		// We never probe the server; stray pongs are ignored.

	case protocol.KindChat:
		if action.Chat.ID != "" {
			if _, ours := s.sentChat[action.Chat.ID]; ours {
				// Server echo of a message already displayed locally.
				delete(s.sentChat, action.Chat.ID)
				return
			}
		}
		s.queue.Enqueue(action)

	default:
		s.queue.Enqueue(action)
	}
}

// handleCommand applies local input: optimistic paint, then transmit.
// Self-authored actions never come back through the queue.
func (s *Session) handleCommand(cmd command) {
	status := s.Status()

	switch cmd.kind {
	case protocol.KindDrawStart, protocol.KindDraw, protocol.KindDrawStop:
		if !status.CanDraw {
			return
		}
		action := protocol.Action{Kind: cmd.kind}
		switch cmd.kind {
		case protocol.KindDrawStart:
			s.surface.BeginPath(cmd.point)
			action.Point = &cmd.point
		case protocol.KindDraw:
			s.surface.LineTo(cmd.point)
			action.Point = &cmd.point
		case protocol.KindDrawStop:
			s.surface.ClosePath()
		}
		s.send(action)

	case protocol.KindChat:
		if !status.CanChat {
			return
		}
		s.sentChat[cmd.chat.ID] = struct{}{}
		s.appendChat(cmd.chat)
		s.send(protocol.Action{Kind: protocol.KindChat, Chat: &cmd.chat})
	}
}

// render drains the queue and replays it onto the surface, once per
// pass.
func (s *Session) render() {
	actions := s.queue.Drain()
	if len(actions) == 0 {
		return
	}
	n := canvas.Replay(s.surface, actions, canvas.Hooks{
		SnapshotRequested: s.captureSnapshot,
		Chat:              s.appendChat,
		RoundFinished: func(answer string) {
			s.setNotice(fmt.Sprintf("Round over! The answer was %q", answer))
		},
		CorrectGuess: func(winner, answer string) {
			s.setNotice(fmt.Sprintf("%s guessed it! The answer was %q", winner, answer))
		},
	})
	s.metrics.actionsReplayed.Add(float64(n))
}

// captureSnapshot grabs the surface inside the loop (a brief exclusive
// read, so a later round-start cannot tear the capture) and compresses
// it off-loop. The result is transmitted only if the session is still
// live.
func (s *Session) captureSnapshot() {
	img := s.surface.Clone()
	encode := s.opts.SnapshotEncode
	quality := s.opts.SnapshotQuality

	go func() {
		data, err := encode(img, quality)
		select {
		case s.snapshots <- snapshotResult{data: data, err: err}:
		case <-s.done:
			// Torn down while compressing; nothing left to reply to.
		}
	}()
}

func (s *Session) handleSnapshotResult(res snapshotResult) {
	if res.err != nil {
		s.metrics.snapshotFailures.Inc()
		s.logf("SNAP: Capture failed, skipping reply: %v", res.err)
		return
	}
	if s.send(protocol.Action{Kind: protocol.KindSnapshot, Data: res.data}) == nil {
		s.metrics.snapshotsSent.Inc()
		s.logf("SNAP: Sent snapshot reply (%d bytes)", len(res.data))
	}
}

func (s *Session) send(a protocol.Action) error {
	frame, err := protocol.Encode(a)
	if err != nil {
		s.logf("WIRE: Cannot encode %s: %v", a.Kind, err)
		return err
	}
	if err := s.conn.Send(frame); err != nil {
		s.logf("WIRE: Send failed: %v", err)
		return err
	}
	s.metrics.framesSent.WithLabelValues(string(a.Kind)).Inc()
	return nil
}

// finish publishes the final canvas and marks the session closed, then
// releases everyone blocked on the loop.
func (s *Session) finish() {
	s.mu.Lock()
	s.lastFrame = s.surface.Clone()
	if s.state != StateClosed {
		s.state = StateClosed
		if s.reason == ReasonNone {
			s.reason = ReasonUnknown
		}
	}
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) transition(state State, reason Reason) {
	s.mu.Lock()
	if s.state == StateClosed {
		// Closed is terminal.
		s.mu.Unlock()
		return
	}
	s.state = state
	s.reason = reason
	s.mu.Unlock()
	s.logf("SESSION: State %s", state)
}

// ---- Local input ----

// DrawStart begins a local stroke. Admin only, while connected.
func (s *Session) DrawStart(p protocol.Point) error {
	return s.submitDraw(protocol.KindDrawStart, p)
}

// Draw extends the local stroke.
func (s *Session) Draw(p protocol.Point) error {
	return s.submitDraw(protocol.KindDraw, p)
}

// DrawStop ends the local stroke.
func (s *Session) DrawStop() error {
	if !s.Status().CanDraw {
		return ErrNotAllowed
	}
	return s.submit(command{kind: protocol.KindDrawStop})
}

func (s *Session) submitDraw(kind protocol.Kind, p protocol.Point) error {
	if !s.Status().CanDraw {
		return ErrNotAllowed
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.submit(command{kind: kind, point: p})
}

// SendChat attributes text to the session identity and transmits it.
// The message is displayed locally right away; the server echo is
// deduplicated by ID.
func (s *Session) SendChat(text string) error {
	if !s.Status().CanChat {
		return ErrNotAllowed
	}
	return s.submit(command{kind: protocol.KindChat, chat: protocol.ChatMessage{
		ID:     uuid.NewString(),
		Sender: s.opts.Username,
		Text:   text,
		Date:   time.Now().Format("15:04"),
	}})
}

func (s *Session) submit(cmd command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// StartRound submits the round's answer and duration over the HTTP
// control plane; round control never rides the socket.
func (s *Session) StartRound(ctx context.Context, answer string, delay time.Duration) error {
	if s.opts.Control == nil {
		return errors.New("session: no control-plane client configured")
	}
	if !s.Status().CanStart {
		return ErrNotAllowed
	}
	return s.opts.Control.StartRound(ctx, s.opts.RoomID, answer, delay)
}

// ---- Viewer-facing reads ----

// Status reports the lifecycle state and which affordances it gates on.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:    s.state,
		StateTxt: s.state.String(),
		RoomID:   s.opts.RoomID,
		Role:     s.opts.Role,
		Username: s.opts.Username,
	}
	if s.state == StateClosed {
		status.Reason = s.reason.String()
		status.Message = s.reason.Message()
	}
	connected := s.state == StateConnected
	admin := s.opts.Role == RoleAdmin
	status.CanDraw = connected && admin
	status.CanChat = connected
	status.CanStart = connected && admin
	return status
}

// CanvasImage returns a copy of the current surface. After teardown it
// serves the final frame.
func (s *Session) CanvasImage() *image.RGBA {
	req := make(chan *image.RGBA, 1)
	select {
	case s.canvasReqs <- req:
		select {
		case img := <-req:
			return img
		case <-s.done:
			return s.finalFrame()
		}
	case <-s.done:
		return s.finalFrame()
	}
}

func (s *Session) finalFrame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// ChatHistory returns the full session scrollback, oldest first.
func (s *Session) ChatHistory() []protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Notice pops the pending one-shot notification, if any.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) appendChat(m protocol.ChatMessage) {
	s.mu.Lock()
	s.chat = append(s.chat, m)
	s.mu.Unlock()
}

func (s *Session) setNotice(n string) {
	s.mu.Lock()
	s.notice = n
	s.mu.Unlock()
	s.logf("SESSION: %s", n)
}
