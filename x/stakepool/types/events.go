package types

// Event types
const (
	EventTypeCreatePool    = "stakepool_create_pool"
	EventTypeStake         = "stakepool_stake"
	EventTypeClaim         = "stakepool_claim"
	EventTypeStakeMore     = "stakepool_stake_more"
	EventTypeUnstake       = "stakepool_unstake"
	EventTypeSpend         = "stakepool_spend"
	EventTypeSetRate       = "stakepool_set_rate"
	EventTypeUpdateParams  = "stakepool_update_params"
	EventTypeAdminOverride = "stakepool_admin_override"
)

// Event attribute keys
const (
	AttributeKeyPoolID      = "pool_id"
	AttributeKeyPositionID  = "position_id"
	AttributeKeyOwner       = "owner"
	AttributeKeyAmount      = "amount"
	AttributeKeyGross       = "gross"
	AttributeKeyPayout      = "payout"
	AttributeKeyDenom       = "denom"
	AttributeKeyMode        = "mode"
	AttributeKeyMerged      = "merged"
	AttributeKeyRate        = "rate"
	AttributeKeyRecipient   = "recipient"
	AttributeKeyAuthority   = "authority"
	AttributeKeyField       = "field"
	AttributeKeyOldValue    = "old_value"
	AttributeKeyNewValue    = "new_value"
	AttributeKeySequence    = "sequence"
	AttributeKeyTotalStaked = "total_staked"
	AttributeKeySettlement  = "settlement_currency"
)
