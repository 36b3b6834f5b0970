package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"navalwar/internal/app"
	"navalwar/internal/config"
	"navalwar/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// gameConfigPath is read once per node; a missing file keeps the defaults.
const gameConfigPath = "data/naval_config.json"

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats     [2]string                   `json:"seats"` // user id per player, empty means free
	Presences map[string]runtime.Presence `json:"-"`     // session id -> presence
	Session   *app.Session                `json:"-"`     // serialized naval match
	LastPhase domain.Phase                `json:"last_phase"`

	// EmptyTicks counts consecutive loop ticks without a connection.
	EmptyTicks      int64 `json:"empty_ticks"`
	EmptyGraceTicks int64 `json:"empty_grace_ticks"`
	// SetupBounded is set when the setup phase has a deadline that starts the battle on its own.
	SetupBounded bool `json:"setup_bounded"`

	conns map[string]*presenceConn
	store *NakamaSnapshotStore
}

// SeatedCount returns the number of taken seats.
func (ms *MatchState) SeatedCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" {
			count++
		}
	}
	return count
}

// seatOf returns the player seated as userID, or NoPlayer.
func (ms *MatchState) seatOf(userID string) domain.Player {
	for i, seat := range ms.Seats {
		if seat != "" && seat == userID {
			return domain.Player(i + 1)
		}
	}
	return domain.NoPlayer
}

// presenceConn delivers session events to one Nakama presence.
type presenceConn struct {
	presence   runtime.Presence
	player     domain.Player
	dispatcher runtime.MatchDispatcher
}

func (c *presenceConn) ID() string            { return c.presence.GetSessionId() }
func (c *presenceConn) Player() domain.Player { return c.player }

// Send queues the event on the dispatcher; Nakama delivers it after the current loop.
func (c *presenceConn) Send(ev app.Event) error {
	op, ok := EventOpCode(ev.Kind)
	if !ok {
		return fmt.Errorf("no op code for event %s", ev.Kind)
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return c.dispatcher.BroadcastMessage(op, data, []runtime.Presence{c.presence}, nil, true)
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing naval match.")

	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}
	cfg := *config.GetGameConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if err := cfg.ApplyEnv(env); err != nil {
			logger.Warn("MatchInit: Ignoring bad env override: %v", err)
			cfg = *config.GetGameConfig()
		}
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	var store *NakamaSnapshotStore
	if nk != nil {
		store = NewNakamaSnapshotStore(nk)
	}

	state, err := mh.newState(ctx, logger, cfg, matchID, store, params)
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}

	label, err := mh.label(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, cfg.TickRate, label
}

// newState builds the match state, continuing the stored match named by the resume param if any.
func (mh *matchHandler) newState(ctx context.Context, logger runtime.Logger, cfg config.GameConfig, matchID string, store *NakamaSnapshotStore, params map[string]interface{}) (*MatchState, error) {
	svc := app.NewService(nil, cfg.ClockSettings())
	opts := []app.SessionOption{app.WithTickInterval(cfg.TickInterval())}
	if store != nil {
		opts = append(opts, app.WithStore(store))
	}
	state := &MatchState{
		Presences:       make(map[string]runtime.Presence),
		LastPhase:       domain.PhaseSetup,
		EmptyGraceTicks: cfg.EmptyMatchTicks(),
		SetupBounded:    cfg.SetupMinutes > 0,
		conns:           make(map[string]*presenceConn),
		store:           store,
	}

	resumeID, _ := params[MatchParamResume].(string)
	if resumeID == "" {
		state.Session = app.NewSession(matchID, svc, logger, opts...)
		return state, nil
	}
	if store == nil {
		return nil, fmt.Errorf("cannot resume match %s without storage", resumeID)
	}
	data, err := store.Load(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("resume match %s: %w", resumeID, err)
	}
	rec, err := app.UnmarshalRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.State.Finished() {
		return nil, fmt.Errorf("resume match %s: already finished", resumeID)
	}
	seats, err := store.LoadSeats(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("resume match %s: %w", resumeID, err)
	}

	state.Session = app.ResumeSession(rec, svc, logger, opts...)
	state.Seats = seats
	state.LastPhase = rec.State.Phase
	logger.Info("MatchInit: Resumed match %s in phase %s.", resumeID, rec.State.Phase)
	return state, nil
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always come back.
	if matchState.seatOf(presence.GetUserId()).Valid() {
		return state, true, ""
	}
	if matchState.Session.Finished() {
		return state, false, "Match finished"
	}
	if domain.LowestAvailableSeat(&matchState.Seats) == domain.NoPlayer {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	seated := false
	for _, p := range presences {
		player := matchState.seatOf(p.GetUserId())
		if !player.Valid() {
			player = domain.LowestAvailableSeat(&matchState.Seats)
			if !player.Valid() {
				logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
				continue
			}
			matchState.Seats[player.Index()] = p.GetUserId()
			seated = true
		}

		conn := &presenceConn{presence: p, player: player, dispatcher: dispatcher}
		matchState.Presences[p.GetSessionId()] = p
		matchState.conns[p.GetSessionId()] = conn
		if err := matchState.Session.Attach(conn); err != nil {
			logger.Error("MatchJoin: Failed to attach %s as player %d: %v", p.GetUserId(), player, err)
			continue
		}
		logger.Info("MatchJoin: User %s seated as player %d.", p.GetUserId(), player)
	}

	if seated && matchState.store != nil {
		if err := matchState.store.SaveSeats(ctx, matchState.Session.ID(), matchState.Seats); err != nil {
			logger.Error("MatchJoin: Failed to store seats: %v", err)
		}
	}
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match. Seats stay reserved so
// players can reconnect; the clock keeps running meanwhile.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		if conn, ok := matchState.conns[p.GetSessionId()]; ok {
			matchState.Session.Detach(conn)
			delete(matchState.conns, p.GetSessionId())
		}
		delete(matchState.Presences, p.GetSessionId())
		logger.Debug("MatchLeave: User %s left.", p.GetUserId())
	}

	if mh.abandoned(matchState) {
		logger.Info("MatchLeave: Terminating abandoned match.")
		return nil
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		conn, ok := matchState.conns[msg.GetSessionId()]
		if !ok {
			logger.Warn("MatchLoop: Message from unattached session %s", msg.GetSessionId())
			continue
		}
		kind, ok := ActionKindOf(msg.GetOpCode())
		if !ok {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			matchState.Session.Reject(conn, "", fmt.Errorf("%w: op %d", app.ErrUnknownAction, msg.GetOpCode()))
			continue
		}
		action, err := app.DecodeAction(kind, msg.GetData())
		if err != nil {
			matchState.Session.Reject(conn, kind, err)
			continue
		}
		if err := matchState.Session.Handle(ctx, conn, action); err != nil {
			logger.Debug("MatchLoop: %s from player %d rejected: %v", kind, conn.Player(), err)
		}
	}

	matchState.Session.Tick(ctx)
	if len(matchState.conns) > 0 {
		matchState.EmptyTicks = 0
	} else {
		matchState.EmptyTicks++
	}

	if phase := matchState.Session.Phase(); phase != matchState.LastPhase {
		matchState.LastPhase = phase
		mh.updateLabel(matchState, dispatcher, logger)
	}
	if mh.abandoned(matchState) {
		logger.Info("MatchLoop: Terminating abandoned match.")
		return nil
	}
	return matchState
}

// abandoned is true for a finished match nobody watches. A match nobody sat in, or a setup
// without a deadline, is given EmptyGraceTicks first. Any other seated match keeps running
// while its players are away: its clocks end it eventually.
func (mh *matchHandler) abandoned(state *MatchState) bool {
	switch {
	case len(state.conns) > 0:
		return false
	case state.Session.Finished():
		return true
	case state.EmptyTicks < state.EmptyGraceTicks:
		return false
	case state.SeatedCount() == 0:
		return true
	default:
		return state.Session.Phase() == domain.PhaseSetup && !state.SetupBounded
	}
}

func (mh *matchHandler) label(state *MatchState) (string, error) {
	l := state.Session.Label(state.SeatedCount())
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyOpen: l.Open,
		"game":            l.Game,
		"phase":           l.Phase,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := mh.label(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d seconds of grace", graceSeconds)
	return state
}

// signalRequest is what RpcGetState hands to MatchSignal.
type signalRequest struct {
	Op     string `json:"op"`
	UserID string `json:"user_id"`
}

// MatchSignal answers get_state signals with the caller's filtered view.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	var req signalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil || req.Op != RpcGetState {
		logger.Warn("MatchSignal: Unsupported signal %q", data)
		return state, ""
	}
	player := matchState.seatOf(req.UserID)
	if !player.Valid() {
		return state, ""
	}
	view, err := json.Marshal(matchState.Session.View(player))
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal view: %v", err)
		return state, ""
	}
	return state, string(view)
}
