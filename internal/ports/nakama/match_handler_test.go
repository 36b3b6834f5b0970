package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"navalwar/internal/app"
	"navalwar/internal/config"
	"navalwar/internal/domain"
	"navalwar/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent      []sentMessage
	lastLabel string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.sent = append(md.sent, sentMessage{opCode: opCode, data: append([]byte(nil), data...), presences: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.lastLabel = label
	return nil
}

// sentTo returns the op codes delivered to the given session.
func (md *mockDispatcher) sentTo(sessionID string) []int64 {
	var ops []int64
	for _, m := range md.sent {
		for _, p := range m.presences {
			if p.GetSessionId() == sessionID {
				ops = append(ops, m.opCode)
			}
		}
	}
	return ops
}

func (md *mockDispatcher) reset() { md.sent = nil }

type fakePresence struct {
	userID    string
	sessionID string
}

func (p fakePresence) GetHidden() bool                   { return false }
func (p fakePresence) GetPersistence() bool              { return false }
func (p fakePresence) GetUsername() string               { return p.userID }
func (p fakePresence) GetStatus() string                 { return "" }
func (p fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p fakePresence) GetUserId() string                 { return p.userID }
func (p fakePresence) GetSessionId() string              { return p.sessionID }
func (p fakePresence) GetNodeId() string                 { return "node" }

type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (d fakeMatchData) GetOpCode() int64      { return d.opCode }
func (d fakeMatchData) GetData() []byte       { return d.data }
func (d fakeMatchData) GetReliable() bool     { return true }
func (d fakeMatchData) GetReceiveTime() int64 { return 0 }

var (
	alice = fakePresence{userID: "user-a", sessionID: "sess-a"}
	bob   = fakePresence{userID: "user-b", sessionID: "sess-b"}
	carol = fakePresence{userID: "user-c", sessionID: "sess-c"}
)

func testContext() context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, map[string]string{})
	return context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-1.node")
}

func initMatch(t *testing.T) (*matchHandler, *MatchState, string) {
	t.Helper()
	mh := newMatchHandler()
	state, tickRate, label := mh.MatchInit(testContext(), noopLogger{}, nil, nil, nil)
	if state == nil {
		t.Fatal("MatchInit returned nil state")
	}
	if tickRate != 1 {
		t.Fatalf("tick rate = %d, want 1", tickRate)
	}
	return mh, state.(*MatchState), label
}

func decodeLabel(t *testing.T, label string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(label), &out); err != nil {
		t.Fatalf("label %q is not JSON: %v", label, err)
	}
	return out
}

func TestOpCodes(t *testing.T) {
	for _, k := range app.ActionKinds {
		op, ok := ActionOpCode(k)
		if !ok {
			t.Fatalf("no op code for %s", k)
		}
		if back, ok := ActionKindOf(op); !ok || back != k {
			t.Fatalf("ActionKindOf(%d) = %s, want %s", op, back, k)
		}
	}
	if op, _ := ActionOpCode(app.ActionSetupPiece); op != 1 {
		t.Fatalf("setup_piece op = %d, want 1", op)
	}
	if op, _ := EventOpCode(app.EventStateUpdate); op != 101 {
		t.Fatalf("game_state_update op = %d, want 101", op)
	}
	for _, op := range []int64{0, int64(len(app.ActionKinds)) + 1, 101} {
		if _, ok := ActionKindOf(op); ok {
			t.Fatalf("ActionKindOf(%d) accepted", op)
		}
	}
}

func TestMatchInitLabel(t *testing.T) {
	_, _, label := initMatch(t)
	got := decodeLabel(t, label)
	if got["open"] != true || got["game"] != "naval" || got["phase"] != string(domain.PhaseSetup) {
		t.Fatalf("label = %v", got)
	}
}

func TestJoinSeatsTwoPlayers(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}

	for _, p := range []fakePresence{alice, bob} {
		if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, 0, ms, p, nil); !ok {
			t.Fatalf("join attempt of %s rejected: %s", p.userID, reason)
		}
		mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{p})
	}

	if ms.Seats != [2]string{"user-a", "user-b"} {
		t.Fatalf("seats = %v", ms.Seats)
	}
	if got := decodeLabel(t, md.lastLabel); got["open"] != false {
		t.Fatalf("label still open: %v", got)
	}
	if ops := md.sentTo(bob.sessionID); len(ops) != 1 || ops[0] != 101 {
		t.Fatalf("bob received %v, want one state update", ops)
	}

	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, 0, ms, carol, nil); ok || reason != "Match full" {
		t.Fatalf("third player admitted (ok=%v reason=%q)", ok, reason)
	}
	// A seated player can come back on a new session.
	back := fakePresence{userID: alice.userID, sessionID: "sess-a2"}
	if _, ok, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, 0, ms, back, nil); !ok {
		t.Fatal("seated player could not rejoin")
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{back})
	if ms.conns["sess-a2"].Player() != domain.Player1 {
		t.Fatalf("rejoined as player %d, want 1", ms.conns["sess-a2"].Player())
	}
}

func TestMatchLoopRoutesActions(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice, bob})
	md.reset()

	autoSetup, _ := ActionOpCode(app.ActionAutoSetup)
	messages := []runtime.MatchData{
		fakeMatchData{fakePresence: alice, opCode: autoSetup},
		fakeMatchData{fakePresence: bob, opCode: 99},
	}
	if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, ms, messages); out == nil {
		t.Fatal("MatchLoop terminated the match")
	}

	// alice: private state update then the tick; bob: error then the tick.
	if ops := md.sentTo(alice.sessionID); len(ops) != 2 || ops[0] != 101 || ops[1] != 102 {
		t.Fatalf("alice received %v", ops)
	}
	bobOps := md.sentTo(bob.sessionID)
	if len(bobOps) != 2 || bobOps[0] != 107 || bobOps[1] != 102 {
		t.Fatalf("bob received %v", bobOps)
	}
	var errPayload app.ErrorPayload
	for _, m := range md.sent {
		if m.opCode == 107 {
			if err := json.Unmarshal(m.data, &errPayload); err != nil {
				t.Fatal(err)
			}
		}
	}
	if errPayload.Reason != "UnknownAction" {
		t.Fatalf("error payload = %+v", errPayload)
	}
	if got := ms.Session.View(domain.Player1).State.SetupCounts["1"]; len(got) == 0 {
		t.Fatal("auto_setup was not applied")
	}
}

func TestMatchSignalReturnsView(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice})

	signal, _ := json.Marshal(signalRequest{Op: RpcGetState, UserID: alice.userID})
	_, out := mh.MatchSignal(ctx, noopLogger{}, nil, nil, md, 0, ms, string(signal))
	var view app.StateView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("signal result %q: %v", out, err)
	}
	if view.Player != domain.Player1 || view.State.Phase != domain.PhaseSetup {
		t.Fatalf("view = %+v", view)
	}

	signal, _ = json.Marshal(signalRequest{Op: RpcGetState, UserID: carol.userID})
	if _, out := mh.MatchSignal(ctx, noopLogger{}, nil, nil, md, 0, ms, string(signal)); out != "" {
		t.Fatalf("stranger got a view: %s", out)
	}
}

func TestFreshMatchWaitsForFirstJoin(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}

	if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, ms, nil); out == nil {
		t.Fatal("match ended on its first tick before anyone joined")
	}
	for tick := int64(2); tick < ms.EmptyGraceTicks; tick++ {
		if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, ms, nil); out == nil {
			t.Fatalf("match ended at tick %d, before the empty grace of %d ticks", tick, ms.EmptyGraceTicks)
		}
	}

	// The creator's join still lands inside the grace window.
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice})
	if ms.Seats[0] != alice.userID {
		t.Fatalf("seats = %v", ms.Seats)
	}
	if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, ms.EmptyGraceTicks, ms, nil); out == nil {
		t.Fatal("match ended with a player connected")
	}
	if ms.EmptyTicks != 0 {
		t.Fatalf("EmptyTicks = %d after a connected tick", ms.EmptyTicks)
	}
}

func TestUnjoinedMatchEndsAfterGrace(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}

	var out interface{} = ms
	for tick := int64(1); tick <= ms.EmptyGraceTicks; tick++ {
		out = mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, ms, nil)
	}
	if out != nil {
		t.Fatal("match nobody joined outlived the empty grace")
	}
}

func TestSeatedSetupSurvivesDisconnects(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice, bob})

	autoSetup, _ := ActionOpCode(app.ActionAutoSetup)
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, ms, []runtime.MatchData{fakeMatchData{fakePresence: alice, opCode: autoSetup}})

	if out := mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, 1, ms, []runtime.Presence{alice}); out == nil {
		t.Fatal("match ended while a player is still connected")
	}
	if out := mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, 1, ms, []runtime.Presence{bob}); out == nil {
		t.Fatal("seated setup ended when its last connection dropped")
	}
	for tick := int64(2); tick <= 2*ms.EmptyGraceTicks; tick++ {
		if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, ms, nil); out == nil {
			t.Fatalf("seated setup ended at tick %d", tick)
		}
	}
	if ms.Seats != [2]string{alice.userID, bob.userID} {
		t.Fatalf("seats = %v", ms.Seats)
	}
	if got := ms.Session.View(domain.Player1).State.SetupCounts["1"]; len(got) == 0 {
		t.Fatal("placements were lost while the players were away")
	}
}

func TestUnboundedSetupEndsAfterGrace(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ms.SetupBounded = false
	ctx := testContext()
	md := &mockDispatcher{}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice})
	mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice})

	var out interface{} = ms
	for tick := int64(1); tick <= ms.EmptyGraceTicks; tick++ {
		out = mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, ms, nil)
	}
	if out != nil {
		t.Fatal("setup without a deadline was held forever")
	}
}

func TestFinishedMatchEndsWhenEmpty(t *testing.T) {
	mh, ms, _ := initMatch(t)
	ctx := testContext()
	md := &mockDispatcher{}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice, bob})
	mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, 0, ms, []runtime.Presence{alice})

	resign, _ := ActionOpCode(app.ActionResign)
	if out := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, ms, []runtime.MatchData{fakeMatchData{fakePresence: bob, opCode: resign}}); out == nil {
		t.Fatal("finished match ended while bob is still connected")
	}
	if !ms.Session.Finished() {
		t.Fatalf("phase = %s after resign", ms.Session.Phase())
	}
	if out := mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, 1, ms, []runtime.Presence{bob}); out != nil {
		t.Fatal("finished match without connections was kept alive")
	}
}

type fakeStorage struct {
	objects map[string]string
	err     error
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if v, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, &api.StorageObject{Collection: r.Collection, Key: r.Key, Value: v})
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		if w.PermissionRead != runtime.STORAGE_PERMISSION_NO_READ {
			return nil, errors.New("match records must not be client readable")
		}
		f.objects[w.Collection+"/"+w.Key] = w.Value
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key})
	}
	return acks, nil
}

func TestNakamaSnapshotStore(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStorage{objects: map[string]string{}}
	store := NewNakamaSnapshotStore(fs)

	if _, err := store.Load(ctx, "m1"); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Fatalf("Load(missing) err = %v", err)
	}
	if err := store.Save(ctx, "m1", []byte(`{"match_id":"m1"}`)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, ok := fs.objects[StorageCollectionMatches+"/m1"]; !ok {
		t.Fatalf("stored under %v", fs.objects)
	}
	data, err := store.Load(ctx, "m1")
	if err != nil || string(data) != `{"match_id":"m1"}` {
		t.Fatalf("Load() = %s, %v", data, err)
	}

	if err := store.SaveSeats(ctx, "m1", [2]string{"user-a", "user-b"}); err != nil {
		t.Fatalf("SaveSeats() error: %v", err)
	}
	seats, err := store.LoadSeats(ctx, "m1")
	if err != nil || seats != [2]string{"user-a", "user-b"} {
		t.Fatalf("LoadSeats() = %v, %v", seats, err)
	}
	if _, err := store.LoadSeats(ctx, "m2"); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Fatalf("LoadSeats(missing) err = %v", err)
	}

	fs.err = errors.New("db down")
	if err := store.Save(ctx, "m1", []byte(`{}`)); err == nil {
		t.Fatal("Save() hid the storage error")
	}
	if err := store.Save(ctx, "", []byte(`{}`)); err == nil {
		t.Fatal("Save() accepted an empty match id")
	}
}

// storedMatch writes a record and its seats the way a running match would.
func storedMatch(t *testing.T, store *NakamaSnapshotStore, id string, finished bool) {
	t.Helper()
	rec := app.NewService(nil, domain.DefaultClockSettings()).NewRecord(id, time.Now())
	if finished {
		rec.State.Finish(domain.Player2, domain.WinResign)
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Save(ctx, id, data); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSeats(ctx, id, [2]string{alice.userID, bob.userID}); err != nil {
		t.Fatal(err)
	}
}

func TestMatchResumesFromStorage(t *testing.T) {
	store := NewNakamaSnapshotStore(&fakeStorage{objects: map[string]string{}})
	storedMatch(t, store, "old-1", false)

	mh := newMatchHandler()
	ctx := testContext()
	ms, err := mh.newState(ctx, noopLogger{}, config.Default(), "new-1", store, map[string]interface{}{MatchParamResume: "old-1"})
	if err != nil {
		t.Fatalf("newState() error: %v", err)
	}
	if ms.Session.ID() != "old-1" {
		t.Fatalf("session id = %s, want the stored id", ms.Session.ID())
	}
	if ms.Seats != [2]string{alice.userID, bob.userID} {
		t.Fatalf("seats = %v", ms.Seats)
	}
	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, &mockDispatcher{}, 0, ms, carol, nil); ok {
		t.Fatalf("stranger admitted into a resumed match (%s)", reason)
	}
	if _, ok, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, &mockDispatcher{}, 0, ms, bob, nil); !ok {
		t.Fatal("seated player rejected from the resumed match")
	}
}

func TestMatchResumeRejects(t *testing.T) {
	store := NewNakamaSnapshotStore(&fakeStorage{objects: map[string]string{}})
	storedMatch(t, store, "done-1", true)
	mh := newMatchHandler()

	tests := []struct {
		name  string
		store *NakamaSnapshotStore
		id    string
	}{
		{name: "unknown match", store: store, id: "nope"},
		{name: "finished match", store: store, id: "done-1"},
		{name: "no storage", store: nil, id: "done-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := map[string]interface{}{MatchParamResume: tc.id}
			if _, err := mh.newState(testContext(), noopLogger{}, config.Default(), "new-1", tc.store, params); err == nil {
				t.Fatal("newState() resumed")
			}
		})
	}
}

func TestCheckResumable(t *testing.T) {
	ctx := context.Background()
	store := NewNakamaSnapshotStore(&fakeStorage{objects: map[string]string{}})
	storedMatch(t, store, "live-1", false)
	storedMatch(t, store, "done-1", true)

	tests := []struct {
		name   string
		userID string
		id     string
		want   error
	}{
		{name: "seated player", userID: bob.userID, id: "live-1", want: nil},
		{name: "stranger", userID: carol.userID, id: "live-1", want: errNotSeated},
		{name: "unknown match", userID: bob.userID, id: "nope", want: errNoStoredMatch},
		{name: "finished match", userID: alice.userID, id: "done-1", want: errMatchFinished},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := checkResumable(ctx, store, tc.userID, tc.id); err != tc.want {
				t.Fatalf("checkResumable() = %v, want %v", err, tc.want)
			}
		})
	}
}
