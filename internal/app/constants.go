package app

// MaxMoveLog caps the move history kept in the match record.
const MaxMoveLog = 500
