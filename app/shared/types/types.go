// Package sharedtypes holds the domain vocabulary shared across modules.
package sharedtypes

// Role is a declared player position.
type Role string

const (
	RoleTop     Role = "top"
	RoleJungle  Role = "jg"
	RoleMid     Role = "mid"
	RoleBot     Role = "adc"
	RoleSupport Role = "sup"
	RoleCoach   Role = "coach"
)

// Roles lists every accepted role.
var Roles = []Role{RoleTop, RoleJungle, RoleMid, RoleBot, RoleSupport, RoleCoach}

// Rank is the ten-tier ordinal ladder rank.
type Rank string

const (
	RankIron        Rank = "iron"
	RankBronze      Rank = "bronze"
	RankSilver      Rank = "silver"
	RankGold        Rank = "gold"
	RankPlatinum    Rank = "platinum"
	RankEmerald     Rank = "emerald"
	RankDiamond     Rank = "diamond"
	RankMaster      Rank = "master"
	RankGrandmaster Rank = "grandmaster"
	RankChallenger  Rank = "challenger"
)

// Ranks lists every accepted rank, lowest first.
var Ranks = []Rank{
	RankIron, RankBronze, RankSilver, RankGold, RankPlatinum,
	RankEmerald, RankDiamond, RankMaster, RankGrandmaster, RankChallenger,
}

// Category is the competitive category a match is played under.
type Category string

const (
	CategoryIB  Category = "IB"
	CategorySG  Category = "SG"
	CategoryPE  Category = "PE"
	CategoryDM  Category = "DM"
	CategoryGMC Category = "GMC"
)

// Preset is the proposed match format.
type Preset string

const (
	PresetOpenQuick Preset = "open_quick"
	PresetERLBlock  Preset = "erl_block"
)

// QueueLevel is the competitive level a category maps to.
type QueueLevel string

const (
	LevelOpen    QueueLevel = "Open"
	LevelAcademy QueueLevel = "Academy"
	LevelPro     QueueLevel = "Pro"
)

var categoryLevels = map[Category]QueueLevel{
	CategoryIB:  LevelOpen,
	CategorySG:  LevelOpen,
	CategoryPE:  LevelOpen,
	CategoryDM:  LevelAcademy,
	CategoryGMC: LevelPro,
}

// CategoryLevel maps a category to its queue level; unknown categories play Open.
func CategoryLevel(category Category) QueueLevel {
	if level, ok := categoryLevels[category]; ok {
		return level
	}
	return LevelOpen
}

// MatchStatus is shared by scrims and ladder matches.
type MatchStatus string

const (
	StatusPosted              MatchStatus = "POSTED"
	StatusAccepted            MatchStatus = "ACCEPTED"
	StatusConfirmed           MatchStatus = "CONFIRMED"
	StatusPractice            MatchStatus = "PRACTICE"
	StatusCancelled           MatchStatus = "CANCELLED"
	StatusCompleted           MatchStatus = "COMPLETED"
	StatusNoShow              MatchStatus = "NO_SHOW"
	StatusAwaitingArbitration MatchStatus = "AWAITING_ARBITRATION"
	StatusValidated           MatchStatus = "VALIDATED"
	StatusRefused             MatchStatus = "REFUSED"
	StatusDispute             MatchStatus = "DISPUTE"
	StatusDisqualified        MatchStatus = "DISQUALIFIED"
)

// LadderStatus is the lifecycle of a ladder pool.
type LadderStatus string

const (
	LadderActive LadderStatus = "ACTIVE"
	LadderPaused LadderStatus = "PAUSED"
	LadderClosed LadderStatus = "CLOSED"
)

// TicketState is the arbitration ticket lifecycle.
type TicketState string

const (
	TicketPending      TicketState = "PENDING"
	TicketValidated    TicketState = "VALIDATED"
	TicketRefused      TicketState = "REFUSED"
	TicketNeedsInfo    TicketState = "NEEDS_INFO"
	TicketDispute      TicketState = "DISPUTE"
	TicketDisqualified TicketState = "DISQUALIFIED"
)

// Terminal reports whether no further referee action may touch the ticket.
func (s TicketState) Terminal() bool {
	switch s {
	case TicketValidated, TicketRefused, TicketDispute, TicketDisqualified:
		return true
	}
	return false
}

// MatchType distinguishes the record a ticket adjudicates.
type MatchType string

const (
	MatchTypeScrim  MatchType = "scrim"
	MatchTypeLadder MatchType = "ladder"
)
