package domain

// Action represents the trading action chosen by the consensus engine.
type Action string

const (
	ActionEmergencyExit Action = "EMERGENCY_EXIT"
	ActionStrongSell    Action = "STRONG_SELL"
	ActionSell          Action = "SELL"
	ActionHold          Action = "HOLD"
	ActionBuy           Action = "BUY"
	ActionStrongBuy     Action = "STRONG_BUY"
)

// isValidAction checks if the action is one of the known values
func isValidAction(a Action) bool {
	switch a {
	case ActionEmergencyExit, ActionStrongSell, ActionSell,
		ActionHold, ActionBuy, ActionStrongBuy:
		return true
	}
	return false
}

// String returns the string representation of the action
func (a Action) String() string {
	if !isValidAction(a) {
		return "unknown"
	}
	return string(a)
}

// IsBuy reports whether the action opens or adds to a long exposure.
func (a Action) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// IsSell reports whether the action reduces exposure.
func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionStrongSell || a == ActionEmergencyExit
}
