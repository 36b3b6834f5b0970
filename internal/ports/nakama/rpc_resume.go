package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"navalwar/internal/app"
	"navalwar/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// resumeRequest is the payload of the resume_match RPC. MatchID is the id the match was stored under.
type resumeRequest struct {
	MatchID string `json:"match_id"`
}

// rpcResumeMatch continues a stored match whose Nakama match is gone, e.g. after a node restart.
// Only a seated player may resume it, and the seats carry over.
func rpcResumeMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errMissingUser
	}

	var req resumeRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return "", errBadMatchPayload
	}

	if err := checkResumable(ctx, NewNakamaSnapshotStore(nk), userID, req.MatchID); err != nil {
		return "", err
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameNaval, map[string]interface{}{MatchParamResume: req.MatchID})
	if err != nil {
		logger.Error("resume_match [User:%s]: MatchCreate error: %v", userID, err)
		return "", err
	}

	logger.Info("resume_match [User:%s]: Stored match %s continues as %s", userID, req.MatchID, matchID)
	b, _ := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}

// checkResumable verifies that userID holds a seat in the stored, unfinished match.
func checkResumable(ctx context.Context, store *NakamaSnapshotStore, userID, matchID string) error {
	seats, err := store.LoadSeats(ctx, matchID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return errNoStoredMatch
	}
	if err != nil {
		return err
	}
	if seats[0] != userID && seats[1] != userID {
		return errNotSeated
	}

	data, err := store.Load(ctx, matchID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return errNoStoredMatch
	}
	if err != nil {
		return err
	}
	rec, err := app.UnmarshalRecord(data)
	if err != nil {
		return err
	}
	if rec.State.Finished() {
		return errMatchFinished
	}
	return nil
}
