package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// getStateRequest is the payload of the get_state RPC.
type getStateRequest struct {
	MatchID string `json:"match_id"`
}

// gRPC status codes carried by runtime errors.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeUnauthenticated    = 16
)

var (
	errMissingUser     = runtime.NewError("no user in context", codeUnauthenticated)
	errBadMatchPayload = runtime.NewError(`payload must be {"match_id": "..."}`, codeInvalidArgument)
	errNotSeated       = runtime.NewError("caller is not seated in this match", codePermissionDenied)
	errNoStoredMatch   = runtime.NewError("no stored match with this id", codeNotFound)
	errMatchFinished   = runtime.NewError("match already finished", codeFailedPrecondition)
)

// rpcGetState returns the caller's view of a match, the same payload a game_state_update carries.
// The view is produced inside the match loop through MatchSignal.
func rpcGetState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errMissingUser
	}

	var req getStateRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return "", errBadMatchPayload
	}

	signal, _ := json.Marshal(signalRequest{Op: RpcGetState, UserID: userID})
	view, err := nk.MatchSignal(ctx, req.MatchID, string(signal))
	if err != nil {
		logger.Error("get_state [User:%s]: Signal to match %s failed: %v", userID, req.MatchID, err)
		return "", err
	}
	if view == "" {
		return "", errNotSeated
	}
	return view, nil
}
