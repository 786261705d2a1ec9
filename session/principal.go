package session

import "github.com/chetanran/devsecops-sec-dashboard/identity"

// Principal is the read-only projection of the authenticated account
// shown to the UI. It is recomputed whenever the account list changes
// and is absent when no account is present.
type Principal struct {
	ID       string
	Username string
	Name     string
}

// principalFromAccounts is the pure reducer from the provider's
// account list to the session's principal.
func principalFromAccounts(accounts []identity.Account) *Principal {
	if len(accounts) == 0 {
		return nil
	}
	account := accounts[0]
	return &Principal{
		ID:       account.ID,
		Username: account.Username,
		Name:     account.Name,
	}
}
