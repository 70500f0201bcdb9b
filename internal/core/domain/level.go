package domain

// Level represents a user's MLM progression level
type Level string

const (
	LevelStar     Level = "STAR"
	LevelSilver   Level = "SILVER"
	LevelGold     Level = "GOLD"
	LevelPlatinum Level = "PLATINUM"
	LevelDiamond  Level = "DIAMOND"
)

// UnblockType represents the payment type that lifts an income block
type UnblockType string

const (
	UnblockUpgrade UnblockType = "UPGRADE"
	UnblockSponsor UnblockType = "SPONSOR"
)

// UnblockAction is the payment required to clear a block checkpoint
type UnblockAction struct {
	Type   UnblockType `json:"type"`
	Amount float64     `json:"amount"`
}

// Checkpoint pairs a help-received count with the action that unblocks it
type Checkpoint struct {
	Count  int           `json:"count"`
	Action UnblockAction `json:"action"`
}

// LevelConfig holds the fixed policy values for one level
type LevelConfig struct {
	FixedAmount float64      `json:"fixed_amount"` // amount a sender at this level pays
	HelpQuota   int          `json:"help_quota"`   // confirmed receipts allowed at this level
	HelpLimit   int          `json:"help_limit"`   // concurrent open receive slots
	Checkpoints []Checkpoint `json:"checkpoints"`  // ascending by Count
	Next        Level        `json:"next_level,omitempty"`
}

// levelTable is the closed policy table. STAR is the entry level and never
// auto-blocks. Middle levels carry exactly two checkpoints (upgrade then
// sponsor); DIAMOND is terminal and carries a single sponsor checkpoint.
// Reaching HelpQuota never upgrades a level by itself; upgrades happen only
// through a confirmed UPGRADE payment.
var levelTable = map[Level]LevelConfig{
	LevelStar: {
		FixedAmount: 300,
		HelpQuota:   3,
		HelpLimit:   3,
		Next:        LevelSilver,
	},
	LevelSilver: {
		FixedAmount: 1000,
		HelpQuota:   9,
		HelpLimit:   3,
		Checkpoints: []Checkpoint{
			{Count: 4, Action: UnblockAction{Type: UnblockUpgrade, Amount: 2000}},
			{Count: 7, Action: UnblockAction{Type: UnblockSponsor, Amount: 1000}},
		},
		Next: LevelGold,
	},
	LevelGold: {
		FixedAmount: 2000,
		HelpQuota:   18,
		HelpLimit:   4,
		Checkpoints: []Checkpoint{
			{Count: 6, Action: UnblockAction{Type: UnblockUpgrade, Amount: 5000}},
			{Count: 12, Action: UnblockAction{Type: UnblockSponsor, Amount: 2000}},
		},
		Next: LevelPlatinum,
	},
	LevelPlatinum: {
		FixedAmount: 5000,
		HelpQuota:   27,
		HelpLimit:   5,
		Checkpoints: []Checkpoint{
			{Count: 9, Action: UnblockAction{Type: UnblockUpgrade, Amount: 10000}},
			{Count: 18, Action: UnblockAction{Type: UnblockSponsor, Amount: 5000}},
		},
		Next: LevelDiamond,
	},
	LevelDiamond: {
		FixedAmount: 10000,
		HelpQuota:   50,
		HelpLimit:   6,
		Checkpoints: []Checkpoint{
			{Count: 25, Action: UnblockAction{Type: UnblockSponsor, Amount: 10000}},
		},
	},
}

// levelOrder for listing endpoints
var levelOrder = []Level{LevelStar, LevelSilver, LevelGold, LevelPlatinum, LevelDiamond}

// EntryLevel returns the level new users start at
func EntryLevel() Level {
	return LevelStar
}

// ParseLevel normalizes a stored level string; unknown input is an error,
// never a silent default
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if _, ok := levelTable[l]; !ok {
		return "", ErrInvalidLevel
	}
	return l, nil
}

// Config returns the policy values for a level
func Config(l Level) (LevelConfig, bool) {
	cfg, ok := levelTable[l]
	return cfg, ok
}

// FixedAmount returns the payment amount senders at this level send
func FixedAmount(l Level) float64 {
	return levelTable[l].FixedAmount
}

// HelpQuota returns the total confirmed receipts allowed at this level
func HelpQuota(l Level) int {
	return levelTable[l].HelpQuota
}

// HelpLimit returns the concurrent open receive slots at this level
func HelpLimit(l Level) int {
	return levelTable[l].HelpLimit
}

// BlockCheckpoints returns the ascending checkpoint list for a level
func BlockCheckpoints(l Level) []Checkpoint {
	return levelTable[l].Checkpoints
}

// CheckpointAt returns the checkpoint whose count exactly equals
// helpReceivedCount. Equality is deliberate: a count past a checkpoint is not
// retroactively blocked.
func CheckpointAt(l Level, helpReceivedCount int) (Checkpoint, bool) {
	for _, cp := range levelTable[l].Checkpoints {
		if cp.Count == helpReceivedCount {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// NextLevel returns the level above l; ok is false at the terminal level
func NextLevel(l Level) (Level, bool) {
	next := levelTable[l].Next
	return next, next != ""
}

// IsTerminal reports whether l is the top level
func IsTerminal(l Level) bool {
	return levelTable[l].Next == ""
}

// Levels returns all levels in progression order
func Levels() []Level {
	out := make([]Level, len(levelOrder))
	copy(out, levelOrder)
	return out
}
