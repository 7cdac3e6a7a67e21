package merit

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"totemchain/core/events"
)

const (
	// EventTypeTotemRegistered is emitted when a totem joins the registry.
	EventTypeTotemRegistered = "merit.totem.registered"
	// EventTypeMeritCredited is emitted for every merit credit.
	EventTypeMeritCredited = "merit.credited"
	// EventTypeBoosted is emitted when a holder boosts a totem.
	EventTypeBoosted = "merit.boosted"
	// EventTypeRewardClaimed is emitted when a participant claims a period
	// share.
	EventTypeRewardClaimed = "merit.reward.claimed"
	// EventTypePeriodReleased is emitted once per period processed by the
	// vesting waterfall.
	EventTypePeriodReleased = "merit.period.released"
	// EventTypeBlacklistUpdated is emitted when the blacklist flag toggles.
	EventTypeBlacklistUpdated = "merit.blacklist.updated"
	// EventTypeParamUpdated is emitted on administrative parameter changes.
	EventTypeParamUpdated = "merit.param.updated"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func totemRegisteredEvent(totem [20]byte, tok [20]byte) *events.Record {
	return &events.Record{
		Type: EventTypeTotemRegistered,
		Attributes: map[string]string{
			"totem": hexAddr(totem),
			"token": hexAddr(tok),
		},
	}
}

func meritCreditedEvent(totem [20]byte, period uint64, raw, credited *big.Int, boosted bool) *events.Record {
	return &events.Record{
		Type: EventTypeMeritCredited,
		Attributes: map[string]string{
			"totem":    hexAddr(totem),
			"period":   strconv.FormatUint(period, 10),
			"raw":      raw.String(),
			"credited": credited.String(),
			"window":   strconv.FormatBool(boosted),
		},
	}
}

func boostedEvent(caller, totem [20]byte, period uint64, fee, award *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeBoosted,
		Attributes: map[string]string{
			"caller": hexAddr(caller),
			"totem":  hexAddr(totem),
			"period": strconv.FormatUint(period, 10),
			"fee":    fee.String(),
			"award":  award.String(),
		},
	}
}

func rewardClaimedEvent(participant [20]byte, period uint64, share *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeRewardClaimed,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"period":      strconv.FormatUint(period, 10),
			"share":       share.String(),
		},
	}
}

func periodReleasedEvent(period uint64, year uint8, amount *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypePeriodReleased,
		Attributes: map[string]string{
			"period": strconv.FormatUint(period, 10),
			"year":   strconv.FormatUint(uint64(year), 10),
			"amount": amount.String(),
		},
	}
}

func blacklistUpdatedEvent(totem [20]byte, blacklisted bool) *events.Record {
	return &events.Record{
		Type: EventTypeBlacklistUpdated,
		Attributes: map[string]string{
			"totem":       hexAddr(totem),
			"blacklisted": strconv.FormatBool(blacklisted),
		},
	}
}

func paramUpdatedEvent(name, value string) *events.Record {
	return &events.Record{
		Type: EventTypeParamUpdated,
		Attributes: map[string]string{
			"name":  name,
			"value": value,
		},
	}
}
