package credentials

// checkLoginState only lets ACTIVE users through.
func checkLoginState(state UserState) error {
	switch state {
	case StateActive:
		return nil
	case StateInactive:
		return ErrUserInactive
	case StateBlocked:
		return ErrUserBlocked
	default:
		return ErrUnexpectedState
	}
}

// checkTokenState is the guard shared by activation and password reset.
// BLOCKED is rejected; active reports whether the user is already ACTIVE.
func checkTokenState(state UserState) (active bool, err error) {
	switch state {
	case StateBlocked:
		return false, ErrUserBlocked
	case StateActive:
		return true, nil
	case StateInactive:
		return false, nil
	default:
		return false, ErrUnexpectedState
	}
}
