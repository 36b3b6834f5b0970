package nakama

import "navalwar/internal/app"

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a match with a free seat.
	RpcQuickMatch = "quick_match"

	// RpcResumeMatch restarts a stored match the caller is seated in on a new Nakama match.
	RpcResumeMatch = "resume_match"

	// RpcGetState returns the caller's view of a match it is seated in.
	RpcGetState = "get_state"

	// MatchNameNaval is the authoritative match handler name registered with Nakama.
	MatchNameNaval = "naval_match"

	// StorageCollectionMatches holds the persisted match records.
	StorageCollectionMatches = "naval_matches"

	// StorageCollectionSeats holds the seat assignment of each stored match.
	StorageCollectionSeats = "naval_seats"

	// MatchParamResume names the stored match MatchInit should continue instead of starting fresh.
	MatchParamResume = "resume"

	// MatchLabelKeyOpen is the label key quick match filters on.
	MatchLabelKeyOpen = "open"
)

// Op codes follow the order of app.ActionKinds (client -> server, from 1) and
// app.EventKinds (server -> client, from 101).
const (
	opActionBase int64 = 1
	opEventBase  int64 = 101
)

// ActionOpCode returns the op code of a client request.
func ActionOpCode(kind app.ActionKind) (int64, bool) {
	for i, k := range app.ActionKinds {
		if k == kind {
			return opActionBase + int64(i), true
		}
	}
	return 0, false
}

// ActionKindOf maps a client op code back to its request kind.
func ActionKindOf(op int64) (app.ActionKind, bool) {
	i := op - opActionBase
	if i < 0 || i >= int64(len(app.ActionKinds)) {
		return "", false
	}
	return app.ActionKinds[i], true
}

// EventOpCode returns the op code of a server event.
func EventOpCode(kind app.EventKind) (int64, bool) {
	for i, k := range app.EventKinds {
		if k == kind {
			return opEventBase + int64(i), true
		}
	}
	return 0, false
}
