package consts

import (
	"time"
)

const (
	BotName = "Tres Guard"

	EphemeralTTL   = 120 * time.Second
	JanitorPeriod  = 30 * time.Second
	MuteGrace      = time.Minute
	AdminCacheSize = 4096

	// Telegram treats restrictions longer than 366 days as permanent.
	MaxMuteDuration = 366 * 24 * time.Hour

	// PollTimeout is the long polling window of getUpdates.
	PollTimeout = 60 * time.Second

	RedisKeyPrefix = "guard:"
)

var (
	// BannedKeywords are always filtered, on top of the keywords admins add with /filter.
	BannedKeywords = []string{"airdrop", "giveaway", "http", "t.me/", "claim now"}

	// ChartTriggers mark a message as a chart link that the janitor removes later.
	ChartTriggers = []string{"/chart", "dexscreener"}
)

type Command string

func (c Command) String() string {
	return string(c)
}

const (
	CommandStart        Command = "start"
	CommandHelp         Command = "help"
	CommandCommands     Command = "commands"
	CommandFilter       Command = "filter"
	CommandFilters      Command = "filters"
	CommandRemoveFilter Command = "removefilter"
	CommandAdminMode    Command = "adminmode"
	CommandMute         Command = "mute"
	CommandBan          Command = "ban"
	CommandReport       Command = "report"
	CommandSetChart     Command = "setchart"
	CommandChart        Command = "chart"
	CommandSetRules     Command = "setrules"
	CommandRules        Command = "rules"
)

type StoreKey string

func (s StoreKey) String() string {
	return string(s)
}

const (
	StoreKeyAdminOnly StoreKey = "adminOnly"
	StoreKeyRules     StoreKey = "rules"
	StoreKeyChart     StoreKey = "chart"
	StoreKeyMute      StoreKey = "mute"
	StoreKeyReport    StoreKey = "report"
	StoreKeyKeywords  StoreKey = "keywords"
	StoreKeyEphemeral StoreKey = "ephemeral"
)

var (
	RedisKeys = map[StoreKey]string{
		StoreKeyAdminOnly: RedisKeyPrefix + "admin_only:",
		StoreKeyRules:     RedisKeyPrefix + "rules:",
		StoreKeyChart:     RedisKeyPrefix + "chart:",
		StoreKeyMute:      RedisKeyPrefix + "mute:",
		StoreKeyReport:    RedisKeyPrefix + "report:",
		StoreKeyKeywords:  RedisKeyPrefix + "keywords",
		StoreKeyEphemeral: RedisKeyPrefix + "ephemeral",
	}
)
