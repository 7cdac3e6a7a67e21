package sale

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"totemchain/core/events"
)

const (
	// EventTypeTotemRegistered is emitted when a totem enters the sale
	// ledger.
	EventTypeTotemRegistered = "sale.totem.registered"
	// EventTypeBought is emitted on every primary-sale purchase.
	EventTypeBought = "sale.bought"
	// EventTypeSold is emitted on every pre-closure sell-back.
	EventTypeSold = "sale.sold"
	// EventTypeClosed is emitted when a sale settles.
	EventTypeClosed = "sale.closed"
	// EventTypeLiquidityAdded is emitted after the market maker mints the
	// liquidity position.
	EventTypeLiquidityAdded = "sale.liquidity.added"
	// EventTypeParamUpdated is emitted on administrative parameter changes.
	EventTypeParamUpdated = "sale.param.updated"
	// EventTypeCollaboratorsUpdated is emitted when a totem owner replaces
	// the collaborator list.
	EventTypeCollaboratorsUpdated = "sale.collaborators.updated"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func totemRegisteredEvent(totem, owner, tok [20]byte, custom bool) *events.Record {
	custField := "false"
	if custom {
		custField = "true"
	}
	return &events.Record{
		Type: EventTypeTotemRegistered,
		Attributes: map[string]string{
			"totem":  hexAddr(totem),
			"owner":  hexAddr(owner),
			"token":  hexAddr(tok),
			"custom": custField,
		},
	}
}

func boughtEvent(totem, buyer [20]byte, amount, paid *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeBought,
		Attributes: map[string]string{
			"totem":  hexAddr(totem),
			"buyer":  hexAddr(buyer),
			"amount": amount.String(),
			"paid":   paid.String(),
		},
	}
}

func soldEvent(totem, seller [20]byte, amount, refund *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeSold,
		Attributes: map[string]string{
			"totem":  hexAddr(totem),
			"seller": hexAddr(seller),
			"amount": amount.String(),
			"refund": refund.String(),
		},
	}
}

func closedEvent(totem [20]byte, collected, treasury, creator, vault, pool *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeClosed,
		Attributes: map[string]string{
			"totem":     hexAddr(totem),
			"collected": collected.String(),
			"treasury":  treasury.String(),
			"creator":   creator.String(),
			"vault":     vault.String(),
			"pool":      pool.String(),
		},
	}
}

func liquidityAddedEvent(totem, pair [20]byte, usedToken, usedPayment, liquidity *big.Int) *events.Record {
	return &events.Record{
		Type: EventTypeLiquidityAdded,
		Attributes: map[string]string{
			"totem":       hexAddr(totem),
			"pair":        hexAddr(pair),
			"usedToken":   usedToken.String(),
			"usedPayment": usedPayment.String(),
			"liquidity":   liquidity.String(),
		},
	}
}

func collaboratorsUpdatedEvent(totem [20]byte, count int) *events.Record {
	return &events.Record{
		Type: EventTypeCollaboratorsUpdated,
		Attributes: map[string]string{
			"totem": hexAddr(totem),
			"count": strconv.Itoa(count),
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
