package domain

import "fmt"

// Kind identifies one of the 18 piece kinds.
type Kind string

const (
	KindBDK  Kind = "BDK"  // battleship dock carrier
	KindL    Kind = "L"    // cruiser-leader
	KindA    Kind = "A"    // aircraft carrier
	KindKR   Kind = "KR"   // cruiser
	KindF    Kind = "F"    // frigate
	KindES   Kind = "ES"   // escort, carries mines
	KindST   Kind = "ST"   // patrol ship
	KindTR   Kind = "TR"   // minesweeper
	KindTK   Kind = "TK"   // fast boat, carries torpedoes
	KindT    Kind = "T"    // torpedo
	KindTN   Kind = "TN"   // tanker
	KindS    Kind = "S"    // plane
	KindPL   Kind = "PL"   // submarine
	KindKRPL Kind = "KRPL" // missile submarine
	KindM    Kind = "M"    // mine
	KindSM   Kind = "SM"   // static mine
	KindAB   Kind = "AB"   // atomic bomb
	KindVMB  Kind = "VMB"  // naval base
)

// KindInfo is the static rules entry of a piece kind.
type KindInfo struct {
	Rank  int
	Quota int
	Name  string
}

// Kinds lists every kind from the highest rank to the lowest.
var Kinds = []Kind{
	KindBDK, KindL, KindA, KindKR, KindF, KindES, KindST, KindTR, KindTK,
	KindT, KindTN, KindS, KindPL, KindKRPL, KindM, KindSM, KindAB, KindVMB,
}

var kindTable = map[Kind]KindInfo{
	KindBDK:  {Rank: 18, Quota: 2, Name: "БДК"},
	KindL:    {Rank: 17, Quota: 2, Name: "Л"},
	KindA:    {Rank: 16, Quota: 1, Name: "А"},
	KindKR:   {Rank: 15, Quota: 6, Name: "КР"},
	KindF:    {Rank: 14, Quota: 6, Name: "Ф"},
	KindES:   {Rank: 13, Quota: 6, Name: "ЭС"},
	KindST:   {Rank: 12, Quota: 6, Name: "СТ"},
	KindTR:   {Rank: 11, Quota: 6, Name: "ТР"},
	KindTK:   {Rank: 10, Quota: 6, Name: "ТК"},
	KindT:    {Rank: 9, Quota: 6, Name: "Т"},
	KindTN:   {Rank: 8, Quota: 1, Name: "ТН"},
	KindS:    {Rank: 7, Quota: 1, Name: "С"},
	KindPL:   {Rank: 6, Quota: 1, Name: "ПЛ"},
	KindKRPL: {Rank: 5, Quota: 1, Name: "КРПЛ"},
	KindM:    {Rank: 4, Quota: 6, Name: "М"},
	KindSM:   {Rank: 3, Quota: 1, Name: "СМ"},
	KindAB:   {Rank: 2, Quota: 1, Name: "АБ"},
	KindVMB:  {Rank: 1, Quota: 2, Name: "ВМБ"},
}

var immobileKinds = map[Kind]bool{
	KindVMB: true,
	KindSM:  true,
}

// cargoOf maps a carrier kind to the kind it tows.
var cargoOf = map[Kind]Kind{
	KindES: KindM,
	KindTK: KindT,
	KindA:  KindS,
}

type killPair struct {
	attacker Kind
	defender Kind
}

// specialKills are one-sided wins that ignore rank when two single pieces meet.
var specialKills = map[killPair]bool{
	{KindPL, KindBDK}:  true,
	{KindPL, KindA}:    true,
	{KindKRPL, KindKR}: true,
}

var explosiveKinds = map[Kind]bool{
	KindAB: true,
	KindTN: true,
	KindM:  true,
	KindSM: true,
}

// ParseKind validates a wire name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindTable[k]; !ok {
		return "", fmt.Errorf("unknown piece kind %q: %w", s, ErrInvalidPieceType)
	}
	return k, nil
}

// Valid reports whether k is one of the 18 kinds.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Rank returns the combat strength of the kind, 0 for unknown kinds.
func (k Kind) Rank() int {
	return kindTable[k].Rank
}

// Quota returns how many pieces of the kind a player may deploy.
func (k Kind) Quota() int {
	return kindTable[k].Quota
}

// DisplayName returns the localized short name shown by clients.
func (k Kind) DisplayName() string {
	return kindTable[k].Name
}

// Immobile reports whether the kind can never move.
func (k Kind) Immobile() bool {
	return immobileKinds[k]
}

// Explosive reports whether contact with the kind triggers a special case.
func (k Kind) Explosive() bool {
	return explosiveKinds[k]
}

// Cargo returns the kind towed by a carrier.
func (k Kind) Cargo() (Kind, bool) {
	c, ok := cargoOf[k]
	return c, ok
}

// CarrierOf returns the carrier kind for a cargo kind.
func CarrierOf(cargo Kind) (Kind, bool) {
	for carrier, c := range cargoOf {
		if c == cargo {
			return carrier, true
		}
	}
	return "", false
}

// IsSpecialKill reports whether attacker sinks defender regardless of rank.
func IsSpecialKill(attacker, defender Kind) bool {
	return specialKills[killPair{attacker, defender}]
}

// TotalQuota is the number of pieces in a complete setup.
func TotalQuota() int {
	n := 0
	for _, info := range kindTable {
		n += info.Quota
	}
	return n
}
